package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/attendance-service/internal/models"
	"github.com/SAP-F-2025/attendance-service/internal/repositories"
)

// mockRepository is an in-memory Repository for service tests. The
// attendance mock applies the same owned-column merge the postgres
// implementation performs, so the convergence properties are exercised
// for real.
type mockRepository struct {
	attendance *mockAttendanceRepo
	zone       *mockZoneRepo
	students   *mockStudentDetailsRepo
	incidents  *mockIncidentRepo
	users      *mockUserRepo
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		attendance: &mockAttendanceRepo{records: make(map[string]*models.AttendanceRecord)},
		zone:       &mockZoneRepo{},
		students:   &mockStudentDetailsRepo{details: make(map[string]*models.StudentDetails)},
		incidents:  &mockIncidentRepo{},
		users:      &mockUserRepo{users: make(map[string]*models.User)},
	}
}

func (m *mockRepository) Attendance() repositories.AttendanceRepository        { return m.attendance }
func (m *mockRepository) Zone() repositories.ZoneRepository                    { return m.zone }
func (m *mockRepository) StudentDetails() repositories.StudentDetailsRepository { return m.students }
func (m *mockRepository) Incident() repositories.IncidentRepository            { return m.incidents }
func (m *mockRepository) User() repositories.UserRepository                    { return m.users }
func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ===== ATTENDANCE =====

type mockAttendanceRepo struct {
	mu      sync.Mutex
	records map[string]*models.AttendanceRecord
}

func (m *mockAttendanceRepo) Upsert(_ context.Context, _ *gorm.DB, record *models.AttendanceRecord, ownedColumns []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record.ID == "" {
		record.ID = models.AttendanceRecordID(record.StudentID, record.Date)
	}

	existing, ok := m.records[record.ID]
	if !ok {
		clone := *record
		clone.CreatedAt = time.Now()
		clone.UpdatedAt = clone.CreatedAt
		m.records[record.ID] = &clone
		return nil
	}

	for _, col := range ownedColumns {
		switch col {
		case repositories.AttendanceColStudentName:
			existing.StudentName = record.StudentName
		case repositories.AttendanceColStatus:
			existing.Status = record.Status
		case repositories.AttendanceColCheckInAt:
			existing.CheckInAt = record.CheckInAt
		case repositories.AttendanceColCheckOutAt:
			existing.CheckOutAt = record.CheckOutAt
		case repositories.AttendanceColMarkedBy:
			existing.MarkedBy = record.MarkedBy
		case repositories.AttendanceColOrigin:
			existing.Origin = record.Origin
		}
	}
	existing.UpdatedAt = time.Now()
	return nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, _ *gorm.DB, id string) (*models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (m *mockAttendanceRepo) GetByStudentDate(ctx context.Context, tx *gorm.DB, studentID, date string) (*models.AttendanceRecord, error) {
	return m.GetByID(ctx, tx, models.AttendanceRecordID(studentID, date))
}

func (m *mockAttendanceRepo) List(_ context.Context, _ *gorm.DB, filters repositories.AttendanceFilters) ([]*models.AttendanceRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.AttendanceRecord
	for _, r := range m.records {
		if filters.StudentID != nil && r.StudentID != *filters.StudentID {
			continue
		}
		if filters.Status != nil && r.Status != *filters.Status {
			continue
		}
		clone := *r
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m *mockAttendanceRepo) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AttendanceFilters) ([]*models.AttendanceRecord, int64, error) {
	filters.StudentID = &studentID
	return m.List(ctx, tx, filters)
}

func (m *mockAttendanceRepo) DailyStats(_ context.Context, _ *gorm.DB, date string) (*repositories.DailyAttendanceStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &repositories.DailyAttendanceStats{Date: date}
	for _, r := range m.records {
		if r.Date != date {
			continue
		}
		switch r.Status {
		case models.AttendancePresent:
			stats.Present++
		case models.AttendanceAbsent:
			stats.Absent++
		case models.AttendanceLeave:
			stats.Leave++
		}
		if r.CheckOutAt != nil {
			stats.CheckedOut++
		}
		if r.MarkedBy == models.MarkedBySystem {
			stats.SystemMarked++
		} else if r.MarkedBy != "" {
			stats.ManualMarked++
		}
	}
	return stats, nil
}

// count returns how many stored records match the student-day.
func (m *mockAttendanceRepo) count(studentID, date string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, r := range m.records {
		if r.StudentID == studentID && r.Date == date {
			n++
		}
	}
	return n
}

// ===== ZONE =====

type mockZoneRepo struct {
	mu   sync.Mutex
	zone *models.GeofenceZone
}

func (m *mockZoneRepo) Get(_ context.Context, _ *gorm.DB) (*models.GeofenceZone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.zone == nil {
		return nil, repositories.ErrNotFound
	}
	clone := *m.zone
	return &clone, nil
}

func (m *mockZoneRepo) Set(_ context.Context, _ *gorm.DB, zone *models.GeofenceZone) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	zone.ID = models.ZoneID
	clone := *zone
	m.zone = &clone
	return nil
}

// ===== STUDENT DETAILS =====

type mockStudentDetailsRepo struct {
	mu      sync.Mutex
	details map[string]*models.StudentDetails
}

func (m *mockStudentDetailsRepo) Create(_ context.Context, _ *gorm.DB, details *models.StudentDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *details
	m.details[details.StudentID] = &clone
	return nil
}

func (m *mockStudentDetailsRepo) GetByID(_ context.Context, _ *gorm.DB, studentID string) (*models.StudentDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	details, ok := m.details[studentID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *details
	return &clone, nil
}

func (m *mockStudentDetailsRepo) ExistsByID(_ context.Context, _ *gorm.DB, studentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.details[studentID]
	return ok, nil
}

func (m *mockStudentDetailsRepo) UpdateCaseHistory(_ context.Context, _ *gorm.DB, studentID, caseHistory string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	details, ok := m.details[studentID]
	if !ok {
		return repositories.ErrNotFound
	}
	details.CaseHistory = caseHistory
	return nil
}

func (m *mockStudentDetailsRepo) SetParent(_ context.Context, _ *gorm.DB, studentID, parentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	details, ok := m.details[studentID]
	if !ok {
		return repositories.ErrNotFound
	}
	details.ParentID = parentID
	return nil
}

func (m *mockStudentDetailsRepo) SetAssignedFaculty(_ context.Context, _ *gorm.DB, studentID string, facultyIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	details, ok := m.details[studentID]
	if !ok {
		return repositories.ErrNotFound
	}
	details.AssignedFacultyIDs = facultyIDs
	return nil
}

func (m *mockStudentDetailsRepo) List(_ context.Context, _ *gorm.DB, filters repositories.StudentDetailsFilters) ([]*models.StudentDetails, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.StudentDetails
	for _, d := range m.details {
		if filters.ParentID != nil && d.ParentID != *filters.ParentID {
			continue
		}
		if filters.FacultyID != nil && !d.HasAssignedFaculty(*filters.FacultyID) {
			continue
		}
		clone := *d
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, int64(len(out)), nil
}

func (m *mockStudentDetailsRepo) GetByParent(ctx context.Context, tx *gorm.DB, parentID string) ([]*models.StudentDetails, error) {
	out, _, err := m.List(ctx, tx, repositories.StudentDetailsFilters{ParentID: &parentID})
	return out, err
}

// ===== INCIDENTS =====

type mockIncidentRepo struct {
	mu        sync.Mutex
	incidents []*models.SafetyIncident
}

func (m *mockIncidentRepo) Create(_ context.Context, _ *gorm.DB, incident *models.SafetyIncident) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if incident.ID == "" {
		incident.ID = "incident-" + time.Now().Format("150405.000000000")
	}
	clone := *incident
	m.incidents = append(m.incidents, &clone)
	return nil
}

func (m *mockIncidentRepo) GetByID(_ context.Context, _ *gorm.DB, id string) (*models.SafetyIncident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, i := range m.incidents {
		if i.ID == id {
			clone := *i
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *mockIncidentRepo) List(_ context.Context, _ *gorm.DB, filters repositories.IncidentFilters) ([]*models.SafetyIncident, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.SafetyIncident
	for _, i := range m.incidents {
		if filters.StudentID != nil && i.StudentID != *filters.StudentID {
			continue
		}
		if filters.Severity != nil && i.Severity != *filters.Severity {
			continue
		}
		clone := *i
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

// ===== USERS =====

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (m *mockUserRepo) add(id, name string, role models.UserRole) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[id] = &models.User{
		ID:       id,
		FullName: name,
		Email:    strings.ToLower(id) + "@school.test",
		Role:     role,
	}
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *mockUserRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, err := m.GetByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) List(_ context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.User
	for _, u := range m.users {
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginateUsers(out, filters)
}

func (m *mockUserRepo) ListByRole(_ context.Context, role models.UserRole, filters repositories.UserFilters) ([]*models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.User
	for _, u := range m.users {
		if u.Role != role {
			continue
		}
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginateUsers(out, filters)
}

func (m *mockUserRepo) Search(ctx context.Context, query string, filters repositories.UserFilters) ([]*models.User, int64, error) {
	return m.List(ctx, filters)
}

func (m *mockUserRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := m.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *mockUserRepo) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	user, err := m.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return user.Role == role, nil
}

func paginateUsers(users []*models.User, filters repositories.UserFilters) ([]*models.User, int64, error) {
	total := int64(len(users))
	if filters.Offset > 0 {
		if filters.Offset >= len(users) {
			return nil, total, nil
		}
		users = users[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(users) {
		users = users[:filters.Limit]
	}
	return users, total, nil
}
