package estimates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ru-digital/product-estimator/internal/logging"
	"github.com/ru-digital/product-estimator/internal/models"
)

// ErrPersistence marks a storage-layer failure. Callers map it to a generic response and never
// echo the wrapped cause to end users.
var ErrPersistence = errors.New("estimate persistence failed")

// Repository is the storage surface the service needs; *db.Database implements it.
type Repository interface {
	InsertEstimate(ctx context.Context, f models.EstimateFields, status models.EstimateStatus) (int64, error)
	UpdateEstimate(ctx context.Context, id int64, f models.EstimateFields) (int64, error)
	FindLatestEstimateID(ctx context.Context, name, email string) (int64, bool, error)
	GetEstimate(ctx context.Context, id int64) (*models.Estimate, error)
}

// Archiver keeps an external copy of a persisted estimate payload.
type Archiver interface {
	ArchiveEstimate(ctx context.Context, id int64, data []byte) error
}

// Notifier is told about newly created estimates.
type Notifier interface {
	EstimateSaved(ctx context.Context, e models.Estimate) error
}

// Service decides create-vs-update for incoming estimates and reads them back.
type Service struct {
	repo     Repository
	archiver Archiver
	notifier Notifier
}

// Option configures a Service.
type Option func(*Service)

// WithArchiver enables snapshotting of every written payload.
func WithArchiver(a Archiver) Option { return func(s *Service) { s.archiver = a } }

// WithNotifier enables new-estimate notifications.
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

// NewService creates a new estimate service
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SubmitResult reports what Submit did.
type SubmitResult struct {
	ID      int64
	Updated bool
}

// DedupLookup returns the id of the latest estimate with the same name and email.
// Without both it returns false. Storage errors also return false; the lookup is a heuristic and
// never blocks a save.
func (s *Service) DedupLookup(ctx context.Context, c Candidate) (int64, bool) {
	name, email := identity(c, c.CustomerDetails())
	if name == "" || email == "" {
		return 0, false
	}
	id, found, err := s.repo.FindLatestEstimateID(ctx, name, email)
	if err != nil {
		logging.LogKV("warn", "estimate dedup lookup failed", map[string]interface{}{"error": err.Error()})
		return 0, false
	}
	return id, found
}

// Save inserts a new estimate with status saved.
func (s *Service) Save(ctx context.Context, c Candidate, details models.CustomerDetails, notes string) (int64, error) {
	fields, err := buildFields(c, details, notes)
	if err != nil {
		return 0, err
	}
	id, err := s.repo.InsertEstimate(ctx, fields, models.EstimateStatusSaved)
	if err != nil {
		logging.LogKV("error", "estimate insert failed", map[string]interface{}{"error": err.Error()})
		return 0, fmt.Errorf("%w: insert: %v", ErrPersistence, err)
	}
	s.afterWrite(ctx, id, fields, true)
	return id, nil
}

// Update rewrites the mutable fields of an existing estimate. Status is left alone.
// It reports whether exactly one row changed.
func (s *Service) Update(ctx context.Context, id int64, c Candidate, details models.CustomerDetails, notes string) (bool, error) {
	fields, err := buildFields(c, details, notes)
	if err != nil {
		return false, err
	}
	affected, err := s.repo.UpdateEstimate(ctx, id, fields)
	if err != nil {
		logging.LogKV("error", "estimate update failed", map[string]interface{}{"estimate_id": id, "error": err.Error()})
		return false, fmt.Errorf("%w: update %d: %v", ErrPersistence, id, err)
	}
	if affected != 1 {
		return false, nil
	}
	s.afterWrite(ctx, id, fields, false)
	return true, nil
}

// Get loads an estimate and decodes its payload. A missing record is (nil, false, nil).
func (s *Service) Get(ctx context.Context, id int64) (*models.EstimateView, bool, error) {
	e, err := s.repo.GetEstimate(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %d: %v", ErrPersistence, id, err)
	}
	if e == nil {
		return nil, false, nil
	}
	view := &models.EstimateView{Estimate: *e}
	if e.EstimateData != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(e.EstimateData)))
		dec.UseNumber()
		if err := dec.Decode(&view.Data); err != nil {
			logging.LogKV("warn", "estimate payload is not valid JSON", map[string]interface{}{"estimate_id": id, "error": err.Error()})
		}
	}
	return view, true, nil
}

// Submit saves a candidate, turning it into an update when DedupLookup finds a previous record.
func (s *Service) Submit(ctx context.Context, c Candidate, details models.CustomerDetails, notes string) (SubmitResult, error) {
	if details.IsEmpty() {
		details = c.CustomerDetails()
	}
	if name, email := identity(c, details); name != "" && email != "" {
		if id, found := s.dedupPair(ctx, name, email); found {
			ok, err := s.Update(ctx, id, c, details, notes)
			if err != nil {
				return SubmitResult{}, err
			}
			if ok {
				return SubmitResult{ID: id, Updated: true}, nil
			}
			logging.LogKV("warn", "dedup match vanished before update, saving new estimate", map[string]interface{}{"estimate_id": id})
		}
	}
	id, err := s.Save(ctx, c, details, notes)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{ID: id}, nil
}

func (s *Service) dedupPair(ctx context.Context, name, email string) (int64, bool) {
	id, found, err := s.repo.FindLatestEstimateID(ctx, name, email)
	if err != nil {
		logging.LogKV("warn", "estimate dedup lookup failed", map[string]interface{}{"error": err.Error()})
		return 0, false
	}
	return id, found
}

func (s *Service) afterWrite(ctx context.Context, id int64, f models.EstimateFields, created bool) {
	if s.archiver != nil {
		if err := s.archiver.ArchiveEstimate(ctx, id, []byte(f.EstimateData)); err != nil {
			logging.LogKV("warn", "estimate archive failed", map[string]interface{}{"estimate_id": id, "error": err.Error()})
		}
	}
	if created && s.notifier != nil {
		e := models.Estimate{
			ID: id, Name: f.Name, Email: f.Email, PhoneNumber: f.PhoneNumber, Postcode: f.Postcode,
			TotalMin: f.TotalMin, TotalMax: f.TotalMax, Markup: f.Markup, Status: models.EstimateStatusSaved, Notes: f.Notes,
		}
		if err := s.notifier.EstimateSaved(ctx, e); err != nil {
			logging.LogKV("warn", "estimate notification failed", map[string]interface{}{"estimate_id": id, "error": err.Error()})
		}
	}
}

func buildFields(c Candidate, details models.CustomerDetails, notes string) (models.EstimateFields, error) {
	if details.IsEmpty() {
		details = c.CustomerDetails()
	}
	data, err := c.Serialize()
	if err != nil {
		return models.EstimateFields{}, fmt.Errorf("serialize estimate: %w", err)
	}
	name, email := identity(c, details)
	return models.EstimateFields{
		Name:         name,
		Email:        email,
		PhoneNumber:  details.Phone,
		Postcode:     details.Postcode,
		TotalMin:     c.MinTotal(),
		TotalMax:     c.MaxTotal(),
		Markup:       c.Markup(),
		Notes:        notes,
		EstimateData: data,
	}, nil
}
