package store

import (
	"context"
	"errors"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/query"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{Driver: DialectSQLite, Migrate: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpenLazySkipsMigrations(t *testing.T) {
	s, err := Open(context.Background(), Options{Driver: DialectSQLite, Migrate: true, Lazy: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.CountAdministrators(context.Background()); err == nil {
		t.Error("expected query to fail on an unmigrated database")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	v, err := s.MigrationVersion(ctx)
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if v < 1 {
		t.Errorf("version = %d, want >= 1", v)
	}
}

func TestAdministratorCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &model.Administrator{Email: "  Admin@Resort.test ", PasswordHash: "hash", Name: "Root", IsActive: true}
	if err := s.CreateAdministrator(ctx, a); err != nil {
		t.Fatalf("CreateAdministrator: %v", err)
	}
	if a.ID == 0 {
		t.Fatal("expected non-zero ID after create")
	}
	if a.Email != "admin@resort.test" {
		t.Errorf("email not normalized: %q", a.Email)
	}

	got, err := s.GetAdministratorByEmail(ctx, "ADMIN@resort.test")
	if err != nil {
		t.Fatalf("GetAdministratorByEmail: %v", err)
	}
	if got.ID != a.ID || got.PasswordHash != "hash" || !got.IsActive {
		t.Errorf("unexpected admin: %+v", got)
	}

	dup := &model.Administrator{Email: "admin@resort.test", PasswordHash: "x", IsActive: true}
	if err := s.CreateAdministrator(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate create: got %v, want ErrConflict", err)
	}

	if err := s.SetAdministratorActive(ctx, a.ID, false); err != nil {
		t.Fatalf("SetAdministratorActive: %v", err)
	}
	if err := s.TouchAdministratorLogin(ctx, a.ID); err != nil {
		t.Fatalf("TouchAdministratorLogin: %v", err)
	}
	got, err = s.GetAdministrator(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAdministrator: %v", err)
	}
	if got.IsActive {
		t.Error("expected administrator to be inactive")
	}
	if got.LastLoginAt == nil {
		t.Error("expected last_login_at to be set")
	}

	n, err := s.CountAdministrators(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountAdministrators = %d, %v", n, err)
	}

	if _, err := s.GetAdministrator(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing admin: got %v, want ErrNotFound", err)
	}
	if err := s.SetAdministratorActive(ctx, 999, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing admin update: got %v, want ErrNotFound", err)
	}
}

func TestCustomerCRUDAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	people := []model.Customer{
		{FirstName: "Ana", LastName: "Reyes", Email: "ana@example.com", Phone: "555-0101"},
		{FirstName: "Ben", LastName: "Cruz", Email: "ben@example.com", Phone: "555-0102"},
		{FirstName: "Cara", LastName: "100%_Real", Email: "cara@example.com"},
	}
	for i := range people {
		people[i].PasswordHash = "hash"
		if err := s.CreateCustomer(ctx, &people[i]); err != nil {
			t.Fatalf("CreateCustomer: %v", err)
		}
	}

	list, total, err := s.ListCustomers(ctx, CustomerFilter{Search: "REY"})
	if err != nil {
		t.Fatalf("ListCustomers: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].Email != "ana@example.com" {
		t.Errorf("search REY: total=%d list=%+v", total, list)
	}

	// Wildcards in the search term are literal.
	_, total, err = s.ListCustomers(ctx, CustomerFilter{Search: "%_"})
	if err != nil {
		t.Fatalf("ListCustomers wildcard: %v", err)
	}
	if total != 1 {
		t.Errorf("wildcard search total = %d, want 1", total)
	}

	list, total, err = s.ListCustomers(ctx, CustomerFilter{Order: "email", Page: query.Page{Limit: 2}})
	if err != nil {
		t.Fatalf("ListCustomers page: %v", err)
	}
	if total != 3 || len(list) != 2 || list[0].Email != "ana@example.com" {
		t.Errorf("page: total=%d len=%d first=%q", total, len(list), list[0].Email)
	}

	if _, _, err := s.ListCustomers(ctx, CustomerFilter{Order: "password_hash"}); err == nil {
		t.Error("expected error sorting by password_hash")
	}

	ana := people[0]
	if err := s.SetCustomerBanned(ctx, ana.ID, true); err != nil {
		t.Fatalf("SetCustomerBanned: %v", err)
	}
	banned := true
	list, _, err = s.ListCustomers(ctx, CustomerFilter{Banned: &banned})
	if err != nil {
		t.Fatalf("ListCustomers banned: %v", err)
	}
	if len(list) != 1 || list[0].ID != ana.ID {
		t.Errorf("banned filter returned %+v", list)
	}

	ana.Phone = "555-9999"
	ana.Address = "1 Beach Rd"
	if err := s.UpdateCustomerProfile(ctx, &ana); err != nil {
		t.Fatalf("UpdateCustomerProfile: %v", err)
	}
	got, err := s.GetCustomerByEmail(ctx, "ANA@example.com")
	if err != nil {
		t.Fatalf("GetCustomerByEmail: %v", err)
	}
	if got.Phone != "555-9999" || got.Address != "1 Beach Rd" || !got.IsBanned {
		t.Errorf("unexpected customer: %+v", got)
	}

	if err := s.DeleteCustomer(ctx, ana.ID); err != nil {
		t.Fatalf("DeleteCustomer: %v", err)
	}
	if _, err := s.GetCustomer(ctx, ana.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted customer: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteCustomer(ctx, ana.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}
}

func TestRoomCRUDAndFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rooms := []model.Room{
		{RoomNumber: "101", RoomType: "standard", Capacity: 2, PricePerNight: 80},
		{RoomNumber: "201", RoomType: "suite", Capacity: 4, PricePerNight: 220},
		{RoomNumber: "301", RoomType: "suite", Capacity: 6, PricePerNight: 350, Status: model.RoomMaintenance},
	}
	for i := range rooms {
		if err := s.CreateRoom(ctx, &rooms[i]); err != nil {
			t.Fatalf("CreateRoom: %v", err)
		}
	}
	if rooms[0].Status != model.RoomAvailable {
		t.Errorf("default status = %q", rooms[0].Status)
	}

	list, total, err := s.ListRooms(ctx, RoomFilter{RoomType: "suite", MinCapacity: 5})
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if total != 1 || list[0].RoomNumber != "301" {
		t.Errorf("filter: total=%d list=%+v", total, list)
	}

	list, _, err = s.ListRooms(ctx, RoomFilter{Order: "price desc"})
	if err != nil {
		t.Fatalf("ListRooms order: %v", err)
	}
	if list[0].RoomNumber != "301" {
		t.Errorf("price desc first = %q", list[0].RoomNumber)
	}

	r := rooms[0]
	r.PricePerNight = 95.5
	if err := s.UpdateRoom(ctx, &r); err != nil {
		t.Fatalf("UpdateRoom: %v", err)
	}
	if err := s.SetRoomStatus(ctx, r.ID, model.RoomOccupied); err != nil {
		t.Fatalf("SetRoomStatus: %v", err)
	}
	got, err := s.GetRoom(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if got.PricePerNight != 95.5 || got.Status != model.RoomOccupied {
		t.Errorf("unexpected room: %+v", got)
	}

	counts, err := s.RoomStatusCounts(ctx)
	if err != nil {
		t.Fatalf("RoomStatusCounts: %v", err)
	}
	if counts[model.RoomOccupied] != 1 || counts[model.RoomMaintenance] != 1 || counts[model.RoomAvailable] != 1 {
		t.Errorf("counts = %v", counts)
	}

	dup := &model.Room{RoomNumber: "101", RoomType: "standard", Capacity: 1}
	if err := s.CreateRoom(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate room: got %v, want ErrConflict", err)
	}

	if err := s.DeleteRoom(ctx, rooms[1].ID); err != nil {
		t.Fatalf("DeleteRoom: %v", err)
	}
}

func TestAmenityServiceEmployeeCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pool := &model.Amenity{Name: "Pool", Icon: "pool", IsActive: true}
	gym := &model.Amenity{Name: "Gym", IsActive: false}
	for _, a := range []*model.Amenity{pool, gym} {
		if err := s.CreateAmenity(ctx, a); err != nil {
			t.Fatalf("CreateAmenity: %v", err)
		}
	}
	active, err := s.ListAmenities(ctx, true)
	if err != nil {
		t.Fatalf("ListAmenities: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Pool" {
		t.Errorf("active amenities = %+v", active)
	}
	gym.IsActive = true
	if err := s.UpdateAmenity(ctx, gym); err != nil {
		t.Fatalf("UpdateAmenity: %v", err)
	}
	all, _ := s.ListAmenities(ctx, true)
	if len(all) != 2 {
		t.Errorf("expected 2 active amenities, got %d", len(all))
	}
	if err := s.DeleteAmenity(ctx, pool.ID); err != nil {
		t.Fatalf("DeleteAmenity: %v", err)
	}
	if _, err := s.GetAmenity(ctx, pool.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted amenity: got %v", err)
	}

	spa := &model.Service{Name: "Spa", Price: 45, IsActive: true}
	if err := s.CreateService(ctx, spa); err != nil {
		t.Fatalf("CreateService: %v", err)
	}
	spa.Price = 50
	if err := s.UpdateService(ctx, spa); err != nil {
		t.Fatalf("UpdateService: %v", err)
	}
	gotSvc, err := s.GetService(ctx, spa.ID)
	if err != nil || gotSvc.Price != 50 {
		t.Errorf("GetService = %+v, %v", gotSvc, err)
	}
	svcs, err := s.ListServices(ctx, false)
	if err != nil || len(svcs) != 1 {
		t.Errorf("ListServices = %d, %v", len(svcs), err)
	}
	if err := s.DeleteService(ctx, spa.ID); err != nil {
		t.Fatalf("DeleteService: %v", err)
	}

	hired := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	e := &model.Employee{FirstName: "Lia", LastName: "Tan", Email: "lia@resort.test", Position: "Front desk", Salary: 32000, HiredAt: &hired, IsActive: true}
	if err := s.CreateEmployee(ctx, e); err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	e.Position = "Manager"
	if err := s.UpdateEmployee(ctx, e); err != nil {
		t.Fatalf("UpdateEmployee: %v", err)
	}
	gotEmp, err := s.GetEmployee(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEmployee: %v", err)
	}
	if gotEmp.Position != "Manager" || gotEmp.HiredAt == nil || !gotEmp.HiredAt.Equal(hired) {
		t.Errorf("unexpected employee: %+v", gotEmp)
	}
	emps, err := s.ListEmployees(ctx)
	if err != nil || len(emps) != 1 {
		t.Errorf("ListEmployees = %d, %v", len(emps), err)
	}
	if err := s.DeleteEmployee(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEmployee: %v", err)
	}
}

func TestActivityLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	uid := int64(3)
	old := &model.ActivityEntry{Role: "client", Event: model.EventLogin, Outcome: model.OutcomeSuccess,
		UserID: &uid, CreatedAt: time.Now().UTC().Add(-100 * 24 * time.Hour)}
	fresh := &model.ActivityEntry{Role: "admin", Event: model.EventLoginFailed, Outcome: model.OutcomeFailure,
		Email: "nobody@example.com"}
	for _, e := range []*model.ActivityEntry{old, fresh} {
		if err := s.InsertActivity(ctx, e); err != nil {
			t.Fatalf("InsertActivity: %v", err)
		}
	}

	entries, total, err := s.ListActivity(ctx, ActivityFilter{})
	if err != nil {
		t.Fatalf("ListActivity: %v", err)
	}
	if total != 2 || entries[0].ID != fresh.ID {
		t.Errorf("expected newest first, got total=%d first=%d", total, entries[0].ID)
	}
	if entries[0].UserID != nil {
		t.Error("expected nil user id for unknown account")
	}

	entries, _, err = s.ListActivity(ctx, ActivityFilter{Event: model.EventLogin})
	if err != nil {
		t.Fatalf("ListActivity filtered: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID == nil || *entries[0].UserID != 3 {
		t.Errorf("filtered entries = %+v", entries)
	}

	n, err := s.PruneActivity(ctx, time.Now().Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("PruneActivity: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
}

func TestNormalizeMySQLDSN(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"canonical", "app:secret@tcp(db:3306)/resort"},
		{"bare host port", "app:secret@db:3306/resort"},
		{"missing tcp", "app:secret@(db:3306)/resort"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := mysqldriver.ParseDSN(normalizeMySQLDSN(tt.in))
			if err != nil {
				t.Fatalf("normalized DSN does not parse: %v", err)
			}
			if cfg.Net != "tcp" || cfg.Addr != "db:3306" || cfg.DBName != "resort" {
				t.Errorf("got net=%q addr=%q db=%q", cfg.Net, cfg.Addr, cfg.DBName)
			}
			if cfg.Passwd != "secret" {
				t.Errorf("password lost: %q", cfg.Passwd)
			}
			if !cfg.ParseTime || !cfg.ClientFoundRows || cfg.Loc != time.UTC {
				t.Errorf("missing forced options: parseTime=%v clientFoundRows=%v loc=%v",
					cfg.ParseTime, cfg.ClientFoundRows, cfg.Loc)
			}
		})
	}

	if got := normalizeMySQLDSN("not a dsn"); got != "not a dsn" {
		t.Errorf("unparseable DSN should pass through, got %q", got)
	}
}
