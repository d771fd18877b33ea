// Package openapi builds the OpenAPI document served at /openapi.json from
// the router's route table.
package openapi

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"

	"github.com/palmcove/resortd/internal/model"
)

// Access is who may call a route.
type Access string

const (
	Public Access = "public"
	Signed Access = "signed" // any signed-in role
	Client Access = "client"
	Admin  Access = "admin"
)

// Route documents one registered endpoint. Path uses chi syntax, which
// matches OpenAPI's {param} form.
type Route struct {
	Method  string
	Path    string
	Tag     string
	Summary string
	Access  Access
	// Request and Response name component schemas; empty means none.
	Request  string
	Response string
	// List marks responses whose data is an array of Response with meta.
	List   bool
	Status int
	Query  []string
}

// componentTypes are the model types exposed as component schemas.
var componentTypes = map[string]interface{}{
	"Administrator":    model.Administrator{},
	"Customer":         model.Customer{},
	"Room":             model.Room{},
	"Amenity":          model.Amenity{},
	"Service":          model.Service{},
	"Employee":         model.Employee{},
	"Booking":          model.Booking{},
	"ActivityEntry":    model.ActivityEntry{},
	"DashboardSummary": model.DashboardSummary{},
	"RevenueReport":    model.RevenueReport{},
	"OccupancyReport":  model.OccupancyReport{},
	"ResponseMeta":     model.ResponseMeta{},
}

var pathParam = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Generate builds the document for routes. Extra request/response schemas
// not derived from model types can be passed in extra.
func Generate(title, version string, routes []Route, extra map[string]interface{}) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       title,
			Description: "Resort booking and back-office API. Browser clients sign in with a session cookie and send X-CSRF-Token on state-changing requests; API clients use a bearer token.",
			Version:     version,
		},
		Paths: openapi3.NewPaths(),
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"sessionCookie": &openapi3.SecuritySchemeRef{
			Value: openapi3.NewSecurityScheme().WithType("apiKey").WithIn("cookie").WithName("resortd_session"),
		},
		"bearerAuth": &openapi3.SecuritySchemeRef{
			Value: openapi3.NewJWTSecurityScheme(),
		},
	}
	doc.Components = &components

	if err := addSchemas(doc, componentTypes); err != nil {
		return nil, err
	}
	if err := addSchemas(doc, extra); err != nil {
		return nil, err
	}
	doc.Components.Schemas["Envelope"] = envelopeSchema()

	sorted := append([]Route(nil), routes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	tags := map[string]bool{}
	for _, rt := range sorted {
		item := doc.Paths.Value(rt.Path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(rt.Path, item)
		}
		item.SetOperation(strings.ToUpper(rt.Method), operation(rt))
		if rt.Tag != "" && !tags[rt.Tag] {
			tags[rt.Tag] = true
			doc.Tags = append(doc.Tags, &openapi3.Tag{Name: rt.Tag})
		}
	}
	return doc, nil
}

func addSchemas(doc *openapi3.T, types map[string]interface{}) error {
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ref, err := openapi3gen.NewSchemaRefForValue(types[name], openapi3.Schemas{})
		if err != nil {
			return fmt.Errorf("schema %s: %w", name, err)
		}
		doc.Components.Schemas[name] = ref
	}
	return nil
}

// operation builds the OpenAPI operation for one route.
func operation(rt Route) *openapi3.Operation {
	op := &openapi3.Operation{
		Tags:        nonEmpty(rt.Tag),
		Summary:     rt.Summary,
		OperationID: operationID(rt),
		Responses:   responses(rt),
	}

	for _, m := range pathParam.FindAllStringSubmatch(rt.Path, -1) {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(m[1]).WithSchema(openapi3.NewInt64Schema()),
		})
	}
	for _, q := range rt.Query {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter(q).WithSchema(openapi3.NewStringSchema()),
		})
	}

	if rt.Request != "" {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/"+rt.Request, nil)),
		}
	}

	switch rt.Access {
	case Public, "":
		op.Security = &openapi3.SecurityRequirements{}
	default:
		op.Security = &openapi3.SecurityRequirements{
			{"sessionCookie": {}},
			{"bearerAuth": {}},
		}
	}
	if rt.Access == Client || rt.Access == Admin {
		op.Description = fmt.Sprintf("Requires the %s role.", rt.Access)
	}
	return op
}

func responses(rt Route) *openapi3.Responses {
	status := rt.Status
	if status == 0 {
		status = 200
	}
	resp := openapi3.NewResponses(openapi3.WithStatus(status, &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription("Success").
			WithJSONSchemaRef(successSchema(rt)),
	}))

	errorRef := openapi3.NewSchemaRef("#/components/schemas/Envelope", nil)
	add := func(code int, desc string) {
		resp.Set(fmt.Sprint(code), &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription(desc).WithJSONSchemaRef(errorRef),
		})
	}
	add(400, "Validation failed")
	if rt.Access != Public && rt.Access != "" {
		add(401, "Not signed in")
	}
	if rt.Access == Client || rt.Access == Admin {
		add(403, "Signed in with another role, or CSRF token rejected")
	}
	if strings.Contains(rt.Path, "{") {
		add(404, "Not found")
	}
	add(500, "Server error")
	return resp
}

// successSchema wraps the route's response schema in the envelope.
func successSchema(rt Route) *openapi3.SchemaRef {
	if rt.Response == "" {
		return openapi3.NewSchemaRef("#/components/schemas/Envelope", nil)
	}
	data := openapi3.NewSchemaRef("#/components/schemas/"+rt.Response, nil)
	if rt.List {
		data = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"array"}, Items: data}}
	}
	s := openapi3.NewObjectSchema().
		WithProperty("success", openapi3.NewBoolSchema()).
		WithProperty("message", openapi3.NewStringSchema())
	s.Properties["data"] = data
	if rt.List {
		s.Properties["meta"] = openapi3.NewSchemaRef("#/components/schemas/ResponseMeta", nil)
	}
	s.Required = []string{"success"}
	return s.NewRef()
}

// envelopeSchema is the body of every response without typed data.
func envelopeSchema() *openapi3.SchemaRef {
	s := openapi3.NewObjectSchema().
		WithProperty("success", openapi3.NewBoolSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("code", openapi3.NewStringSchema().WithEnum(
			model.CodeInvalidCredentials, model.CodeAccountLocked, model.CodeCSRFInvalid,
			model.CodeUnauthenticated, model.CodeForbidden, model.CodeValidation,
			model.CodeNotFound, model.CodeConflict, model.CodeUnavailable,
			model.CodeServerError, model.CodeRateLimited,
		))
	s.Required = []string{"success"}
	return s.NewRef()
}

// operationID derives a stable id such as "post_admin_rooms_id_status".
func operationID(rt Route) string {
	p := strings.TrimPrefix(rt.Path, "/api/v1/")
	p = strings.NewReplacer("{", "", "}", "", "/", "_", "-", "_").Replace(p)
	return strings.ToLower(rt.Method) + "_" + strings.Trim(p, "_")
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
