package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mas-api/internal/dto"
	"github.com/noah-isme/mas-api/internal/models"
	"github.com/noah-isme/mas-api/internal/repository"
	"github.com/noah-isme/mas-api/pkg/storage"
)

var (
	vendorActor   = &models.JWTClaims{UserID: "vendor-1", Username: "vendor1", UserType: models.UserTypeVendor}
	vendor2Actor  = &models.JWTClaims{UserID: "vendor-2", Username: "vendor2", UserType: models.UserTypeVendor}
	reviewerActor = &models.JWTClaims{UserID: "reviewer-1", Username: "rev1", UserType: models.UserTypeTeam}
	approverActor = &models.JWTClaims{UserID: "approver-1", Username: "app1", UserType: models.UserTypeTeam}
	outsiderActor = &models.JWTClaims{UserID: "team-9", Username: "team9", UserType: models.UserTypeTeam}
	adminActor    = &models.JWTClaims{UserID: "admin-1", Username: "admin", UserType: models.UserTypeAdmin}
)

// masWorld is the in-memory state shared by the fakes below.
type masWorld struct {
	rows  map[string]*models.MAS
	order []string
	logs  []models.ActivityLog

	projects    map[string]*models.Project
	buildings   map[string]*models.Building
	services    map[string]*models.Service
	items       map[string]*models.Item
	makes       map[string]*models.ItemMake
	assignments map[string]*models.VendorAssignment
	roles       map[string][]models.BuildingRole
}

func newMASWorld() *masWorld {
	lifts := "Lifts"
	buildingA := "building-a"
	return &masWorld{
		rows: map[string]*models.MAS{},
		projects: map[string]*models.Project{
			"project-1": {ID: "project-1", Name: "Harbour View", Number: "P-100"},
		},
		buildings: map[string]*models.Building{
			"building-a": {ID: "building-a", ProjectID: "project-1", Name: "Tower A"},
			"building-b": {ID: "building-b", ProjectID: "project-1", Name: "Tower B"},
			"building-x": {ID: "building-x", ProjectID: "project-2", Name: "Annex"},
		},
		services: map[string]*models.Service{
			"service-hvac":  {ID: "service-hvac", Name: "HVAC"},
			"service-other": {ID: "service-other", Name: models.ServiceNameOther, OtherName: &lifts},
		},
		items: map[string]*models.Item{
			"item-chiller": {ID: "item-chiller", ServiceID: "service-hvac", Name: "Chiller"},
			"item-ahu":     {ID: "item-ahu", ServiceID: "service-hvac", Name: "AHU"},
			"item-lift":    {ID: "item-lift", ServiceID: "service-other", Name: "Passenger Lift"},
		},
		makes: map[string]*models.ItemMake{
			"make-daikin":  {ID: "make-daikin", ItemID: "item-chiller", Name: "Daikin"},
			"make-carrier": {ID: "make-carrier", ItemID: "item-chiller", Name: "Carrier"},
			"make-trane":   {ID: "make-trane", ItemID: "item-ahu", Name: "Trane"},
			"make-kone":    {ID: "make-kone", ItemID: "item-lift", Name: "Kone"},
		},
		assignments: map[string]*models.VendorAssignment{
			"vendor-1|project-1": {ProjectID: "project-1", UserID: "vendor-1", ServiceIDs: []string{"service-hvac"}},
			"vendor-2|project-1": {ProjectID: "project-1", UserID: "vendor-2", BuildingID: &buildingA},
		},
		roles: map[string][]models.BuildingRole{
			"reviewer-1|building-a": {models.BuildingRoleReviewer},
			"approver-1|building-a": {models.BuildingRoleApprover},
			"admin-1|building-b":    {models.BuildingRoleReviewer},
		},
	}
}

type worldSnapshot struct {
	rows  map[string]models.MAS
	order []string
	logs  []models.ActivityLog
}

func (w *masWorld) snapshot() worldSnapshot {
	rows := make(map[string]models.MAS, len(w.rows))
	for id, row := range w.rows {
		rows[id] = *row
	}
	return worldSnapshot{
		rows:  rows,
		order: append([]string(nil), w.order...),
		logs:  append([]models.ActivityLog(nil), w.logs...),
	}
}

func (w *masWorld) restore(snap worldSnapshot) {
	w.rows = make(map[string]*models.MAS, len(snap.rows))
	for id, row := range snap.rows {
		copied := row
		w.rows[id] = &copied
	}
	w.order = snap.order
	w.logs = snap.logs
}

func (w *masWorld) chain(masID string) []models.MAS {
	var out []models.MAS
	for _, id := range w.order {
		if row := w.rows[id]; row.MASID == masID {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := models.ParseRevision(out[i].Revision)
		b, _ := models.ParseRevision(out[j].Revision)
		return a < b
	})
	return out
}

func (w *masWorld) latestCount(masID string) int {
	count := 0
	for _, row := range w.rows {
		if row.MASID == masID && row.IsLatest {
			count++
		}
	}
	return count
}

// fakeTx restores the world when the callback fails.
type fakeTx struct {
	world     *masWorld
	commits   int
	rollbacks int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) error {
	snap := f.world.snapshot()
	if err := fn(nil); err != nil {
		f.world.restore(snap)
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

type fakeMASStore struct {
	world      *masWorld
	lastFilter models.MASFilter
	locked     []string
}

func (s *fakeMASStore) get(id string) (*models.MAS, error) {
	row, ok := s.world.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *row
	return &copied, nil
}

func (s *fakeMASStore) GetByID(ctx context.Context, id string) (*models.MAS, error) {
	return s.get(id)
}

func (s *fakeMASStore) GetForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.MAS, error) {
	return s.get(id)
}

func (s *fakeMASStore) GetLatestForUpdate(ctx context.Context, exec sqlx.ExtContext, masID string) (*models.MAS, error) {
	for _, row := range s.world.rows {
		if row.MASID == masID && row.IsLatest {
			copied := *row
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeMASStore) ListChain(ctx context.Context, masID string) ([]models.MAS, error) {
	return s.world.chain(masID), nil
}

func (s *fakeMASStore) List(ctx context.Context, filter models.MASFilter) ([]models.MAS, error) {
	s.lastFilter = filter
	statuses := mapset.NewSet(filter.Statuses...)
	reviewer := mapset.NewSet(filter.ReviewerBuildings...)
	approver := mapset.NewSet(filter.ApproverBuildings...)
	var out []models.MAS
	for _, id := range s.world.order {
		row := s.world.rows[id]
		if filter.LatestOnly && !row.IsLatest {
			continue
		}
		if filter.CreatorID != "" && row.CreatorID != filter.CreatorID {
			continue
		}
		if statuses.Cardinality() > 0 && !statuses.Contains(row.Status) {
			continue
		}
		if filter.Scoped {
			visible := (reviewer.Contains(row.BuildingID) && row.Status == models.MASStatusPendingReview) ||
				(approver.Contains(row.BuildingID) && row.Status == models.MASStatusPendingApproval) ||
				(reviewer.Union(approver).Contains(row.BuildingID) &&
					(row.Status == models.MASStatusApproved || row.Status == models.MASStatusRejected))
			if !visible {
				continue
			}
		}
		out = append(out, *row)
	}
	return out, nil
}

func (s *fakeMASStore) LockProject(ctx context.Context, exec sqlx.ExtContext, projectID string) error {
	if _, ok := s.world.projects[projectID]; !ok {
		return sql.ErrNoRows
	}
	s.locked = append(s.locked, projectID)
	return nil
}

func (s *fakeMASStore) NextSerialNumber(ctx context.Context, exec sqlx.ExtContext, projectID string) (int, error) {
	highest := 0
	for _, row := range s.world.rows {
		if row.ProjectID == projectID && row.SerialNumber > highest {
			highest = row.SerialNumber
		}
	}
	return highest + 1, nil
}

func (s *fakeMASStore) HasLatestForItem(ctx context.Context, exec sqlx.ExtContext, creatorID, projectID, itemID, excludeMASID string) (bool, error) {
	for _, row := range s.world.rows {
		if row.CreatorID == creatorID && row.ProjectID == projectID && row.ItemID == itemID && row.IsLatest && row.MASID != excludeMASID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeMASStore) Create(ctx context.Context, exec sqlx.ExtContext, mas *models.MAS) error {
	if mas.IsLatest && s.world.latestCount(mas.MASID) > 0 {
		return errors.New("duplicate key value violates unique constraint \"uq_mas_chain_latest\"")
	}
	if mas.ID == "" {
		mas.ID = uuid.NewString()
	}
	mas.CreatedAt = time.Now().UTC()
	mas.UpdatedAt = mas.CreatedAt
	copied := *mas
	s.world.rows[mas.ID] = &copied
	s.world.order = append(s.world.order, mas.ID)
	return nil
}

func (s *fakeMASStore) UpdateSubmission(ctx context.Context, exec sqlx.ExtContext, mas *models.MAS) error {
	row, ok := s.world.rows[mas.ID]
	if !ok || !row.IsLatest || row.Status != models.MASStatusPendingReview {
		return sql.ErrNoRows
	}
	row.ItemID, row.ItemName, row.Make, row.OtherMake, row.Attachment = mas.ItemID, mas.ItemName, mas.Make, mas.OtherMake, mas.Attachment
	return nil
}

func (s *fakeMASStore) decide(params repository.DecisionParams, apply func(row *models.MAS)) error {
	row, ok := s.world.rows[params.ID]
	if !ok || !row.IsLatest || row.Status != params.From {
		return sql.ErrNoRows
	}
	row.Status = params.To
	apply(row)
	return nil
}

func (s *fakeMASStore) ApplyReview(ctx context.Context, exec sqlx.ExtContext, params repository.DecisionParams) error {
	return s.decide(params, func(row *models.MAS) {
		actor, at := params.ActorID, params.At
		row.ReviewerID, row.ReviewComment, row.ReviewDate = &actor, params.Comment, &at
	})
}

func (s *fakeMASStore) ApplyApproval(ctx context.Context, exec sqlx.ExtContext, params repository.DecisionParams) error {
	return s.decide(params, func(row *models.MAS) {
		actor, at := params.ActorID, params.At
		row.ApproverID, row.ApprovalComment, row.ApprovalDate = &actor, params.Comment, &at
	})
}

func (s *fakeMASStore) MarkNotLatest(ctx context.Context, exec sqlx.ExtContext, id string) error {
	row, ok := s.world.rows[id]
	if !ok || !row.IsLatest {
		return sql.ErrNoRows
	}
	row.IsLatest = false
	return nil
}

func (s *fakeMASStore) LatestItemIDs(ctx context.Context, creatorID, projectID string) ([]string, error) {
	var ids []string
	for _, row := range s.world.rows {
		if row.CreatorID == creatorID && row.ProjectID == projectID && row.IsLatest {
			ids = append(ids, row.ItemID)
		}
	}
	return ids, nil
}

type fakeCatalog struct{ world *masWorld }

func lookup[T any](m map[string]*T, id string) (*T, error) {
	if v, ok := m[id]; ok {
		copied := *v
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (c *fakeCatalog) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return lookup(c.world.projects, id)
}

func (c *fakeCatalog) GetBuilding(ctx context.Context, id string) (*models.Building, error) {
	return lookup(c.world.buildings, id)
}

func (c *fakeCatalog) GetService(ctx context.Context, id string) (*models.Service, error) {
	return lookup(c.world.services, id)
}

func (c *fakeCatalog) GetItem(ctx context.Context, id string) (*models.Item, error) {
	return lookup(c.world.items, id)
}

func (c *fakeCatalog) GetMake(ctx context.Context, id string) (*models.ItemMake, error) {
	return lookup(c.world.makes, id)
}

func (c *fakeCatalog) ListBuildings(ctx context.Context, projectID string) ([]models.Building, error) {
	var out []models.Building
	for _, b := range c.world.buildings {
		if b.ProjectID == projectID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *fakeCatalog) ListServices(ctx context.Context, ids []string) ([]models.Service, error) {
	wanted := mapset.NewSet(ids...)
	var out []models.Service
	for _, svc := range c.world.services {
		if wanted.Cardinality() == 0 || wanted.Contains(svc.ID) {
			out = append(out, *svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *fakeCatalog) ListItems(ctx context.Context, serviceID string) ([]models.Item, error) {
	var out []models.Item
	for _, item := range c.world.items {
		if item.ServiceID == serviceID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *fakeCatalog) ListMakes(ctx context.Context, itemID string) ([]models.ItemMake, error) {
	var out []models.ItemMake
	for _, m := range c.world.makes {
		if m.ItemID == itemID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeAssignments struct{ world *masWorld }

func (a *fakeAssignments) VendorAssignment(ctx context.Context, userID, projectID string) (*models.VendorAssignment, error) {
	return lookup(a.world.assignments, userID+"|"+projectID)
}

func (a *fakeAssignments) BuildingRoles(ctx context.Context, userID, buildingID string) ([]models.BuildingRole, error) {
	return a.world.roles[userID+"|"+buildingID], nil
}

func (a *fakeAssignments) RoleGrants(ctx context.Context, userID string) ([]models.BuildingRoleGrant, error) {
	var grants []models.BuildingRoleGrant
	for key, roles := range a.world.roles {
		user, building, _ := strings.Cut(key, "|")
		if user != userID {
			continue
		}
		for _, role := range roles {
			grants = append(grants, models.BuildingRoleGrant{BuildingID: building, Role: role})
		}
	}
	return grants, nil
}

type fakeActivityStore struct {
	world     *masWorld
	appendErr error
}

func (f *fakeActivityStore) Append(ctx context.Context, exec sqlx.ExtContext, entry *models.ActivityLog) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	entry.ID = uuid.NewString()
	entry.Seq = int64(len(f.world.logs) + 1)
	entry.Timestamp = time.Now().UTC()
	f.world.logs = append(f.world.logs, *entry)
	return nil
}

func (f *fakeActivityStore) ListByChain(ctx context.Context, masID string) ([]models.ActivityLog, error) {
	var out []models.ActivityLog
	for _, entry := range f.world.logs {
		row, ok := f.world.rows[entry.MASRowID]
		if !ok || row.MASID != masID {
			continue
		}
		entry.Revision = row.Revision
		out = append(out, entry)
	}
	return out, nil
}

type masHarness struct {
	svc      *MASService
	world    *masWorld
	store    *fakeMASStore
	tx       *fakeTx
	activity *fakeActivityStore
	blobs    *storage.LocalStorage
}

func newMASHarness(t *testing.T) *masHarness {
	t.Helper()
	world := newMASWorld()
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	store := &fakeMASStore{world: world}
	tx := &fakeTx{world: world}
	activity := &fakeActivityStore{world: world}
	attachments := NewAttachmentService(blobs, storage.NewSignedURLSigner("secret", time.Minute), AttachmentConfig{APIPrefix: "/api/v1"}, zap.NewNop())
	svc := NewMASService(
		store,
		&fakeCatalog{world: world},
		&fakeAssignments{world: world},
		tx,
		NewActivityService(activity, zap.NewNop()),
		attachments,
		zap.NewNop(),
		WithMASMetrics(NewMetricsService()),
	)
	return &masHarness{svc: svc, world: world, store: store, tx: tx, activity: activity, blobs: blobs}
}

func pdfUpload(size int) *dto.AttachmentUpload {
	body := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("0"), size)...)
	return &dto.AttachmentUpload{Filename: "sheet.pdf", Size: int64(len(body)), Content: bytes.NewReader(body)}
}

func jpegUpload(size int) *dto.AttachmentUpload {
	header := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	body := append(header, bytes.Repeat([]byte{0x11}, size-len(header))...)
	return &dto.AttachmentUpload{Filename: "photo.jpg", Size: int64(len(body)), Content: bytes.NewReader(body)}
}

func chillerRequest() dto.CreateMASRequest {
	return dto.CreateMASRequest{
		ProjectID:  "project-1",
		BuildingID: "building-a",
		ServiceID:  "service-hvac",
		ItemID:     "item-chiller",
		MakeID:     "make-daikin",
	}
}

func (h *masHarness) create(t *testing.T) *models.MAS {
	t.Helper()
	mas, err := h.svc.Create(context.Background(), vendorActor, chillerRequest(), pdfUpload(1024))
	require.NoError(t, err)
	return mas
}

// rejectViaReview moves a fresh submission to rejected through the reviewer.
func (h *masHarness) rejectViaReview(t *testing.T, id string) *models.MAS {
	t.Helper()
	mas, err := h.svc.Review(context.Background(), reviewerActor, id, dto.ReviewMASRequest{Action: dto.ReviewActionReject, Comment: "wrong datasheet"})
	require.NoError(t, err)
	return mas
}
