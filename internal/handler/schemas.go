package handler

import "github.com/palmcove/resortd/internal/service"

// Schemas returns the request and response bodies the handlers exchange,
// keyed by the component name used in the OpenAPI document.
func Schemas() map[string]interface{} {
	return map[string]interface{}{
		"LoginRequest":       loginRequest{},
		"LoginResponse":      loginResponse{},
		"TokenResponse":      tokenResponse{},
		"MeResponse":         meResponse{},
		"RegisterRequest":    service.RegisterInput{},
		"ProfileRequest":     profileRequest{},
		"PasswordRequest":    passwordRequest{},
		"BookingRequest":     bookingPayload{},
		"Quote":              service.Quote{},
		"StatusRequest":      statusRequest{},
		"RoomRequest":        roomRequest{},
		"AmenityRequest":     amenityRequest{},
		"ServiceRequest":     serviceRequest{},
		"EmployeeRequest":    employeeRequest{},
		"AdministratorInput": createAdminRequest{},
		"ActiveRequest":      activeRequest{},
	}
}
