package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/lakmecaceres/DataLoggerWeb/internal/blob"
	"github.com/lakmecaceres/DataLoggerWeb/internal/controls"
	"github.com/lakmecaceres/DataLoggerWeb/internal/metrics"
	"github.com/lakmecaceres/DataLoggerWeb/internal/sheet"
)

// maxSaveAttempts bounds the optimistic-concurrency retry loop.
const maxSaveAttempts = 3

// Service orchestrates submissions against per-user logs: normalize, derive
// counter state from the log, assign, compose, append and conditionally save.
// All derivation happens before the single conditional write, so a rejected
// submission never leaves a partial row and a conflicting writer only costs
// a re-derivation.
type Service struct {
	store    blob.Store
	controls controls.Store
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService constructs a service over the given stores.
func NewService(store blob.Store, ctl controls.Store, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, controls: ctl, logger: logger, metrics: m, now: time.Now}
}

var userKeyRe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// safeUserKey sanitizes a user name into an object-key-safe identifier.
func safeUserKey(name string) string {
	key := userKeyRe.ReplaceAllString(name, "_")
	if key == "" {
		return "unknown"
	}
	return key
}

func pointerKey(userKey string) string { return fmt.Sprintf("pointers/%s.json", userKey) }

func (s *Service) newObjectName(userKey string) string {
	ts := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("logs/%s/%s_krienen_data_log_%s.xlsx", userKey, userKey, ts)
}

type logPointer struct {
	Object string `json:"object"`
}

// loadPointer returns the current log object name for userKey, empty when the
// user has no log yet.
func (s *Service) loadPointer(ctx context.Context, userKey string) (string, error) {
	data, _, err := s.store.Read(ctx, pointerKey(userKey))
	if errors.Is(err, blob.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("storage: read pointer: %w", err)
	}
	var ptr logPointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return "", fmt.Errorf("storage: decode pointer: %w", err)
	}
	return ptr.Object, nil
}

func (s *Service) savePointer(ctx context.Context, userKey, objectName string) error {
	data, err := json.Marshal(logPointer{Object: objectName})
	if err != nil {
		return err
	}
	if _, err := s.store.Write(ctx, pointerKey(userKey), data, blob.WriteOptions{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("storage: save pointer: %w", err)
	}
	return nil
}

// ensureLogObject resolves (creating on first use) the log object name for a
// user key.
func (s *Service) ensureLogObject(ctx context.Context, userKey string) (string, error) {
	objectName, err := s.loadPointer(ctx, userKey)
	if err != nil {
		return "", err
	}
	if objectName != "" {
		return objectName, nil
	}
	objectName = s.newObjectName(userKey)
	if err := s.savePointer(ctx, userKey, objectName); err != nil {
		return "", err
	}
	return objectName, nil
}

// loadLog reads and decodes the log object. A missing object yields a fresh
// header-only table and an empty version, which turns the eventual save into
// a create-only write.
func (s *Service) loadLog(ctx context.Context, objectName string) (*sheet.Table, string, error) {
	data, info, err := s.store.Read(ctx, objectName)
	if errors.Is(err, blob.ErrNotFound) {
		return sheet.NewLog(), "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("storage: read log: %w", err)
	}
	table, err := sheet.Parse(data)
	if err != nil {
		return nil, "", fmt.Errorf("storage: decode log: %w", err)
	}
	return table, info.Version, nil
}

// Submit processes one form submission end to end.
func (s *Service) Submit(ctx context.Context, sub Submission) error {
	start := s.now()
	err := s.submit(ctx, sub)
	if s.metrics != nil {
		s.metrics.SubmitDuration.Observe(s.now().Sub(start).Seconds())
		switch {
		case err == nil:
			s.metrics.Submissions.WithLabelValues("ok").Inc()
		case IsRejection(err):
			s.metrics.Submissions.WithLabelValues("rejected").Inc()
		default:
			s.metrics.Submissions.WithLabelValues("error").Inc()
		}
	}
	return err
}

func (s *Service) submit(ctx context.Context, sub Submission) error {
	parsed, err := ParseSubmission(sub)
	if err != nil {
		return err
	}
	userKey := safeUserKey(sub.UserFirstName)
	objectName, err := s.ensureLogObject(ctx, userKey)
	if err != nil {
		return err
	}

	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		table, version, err := s.loadLog(ctx, objectName)
		if err != nil {
			return err
		}
		ctlState, haveCtl, err := s.controls.Get(ctx, userKey)
		if err != nil {
			return fmt.Errorf("storage: read controls: %w", err)
		}
		var override *int
		if haveCtl && ctlState.Operator {
			v := ctlState.NextChip
			override = &v
		}

		chipState := DeriveChipState(table, parsed.Date)
		wells, nextPointer := AssignWells(chipState, parsed.RxnNumber, override)
		ampStart := DeriveNextAmpCode(table, parsed.AmpPrefix(), parsed.CdnaAmpDate)
		prepCounts := DerivePrepCounts(table)

		rows, err := ComposeRows(parsed, wells, ampStart, prepCounts)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := table.Append(row); err != nil {
				return err
			}
		}
		data, err := table.Bytes()
		if err != nil {
			return err
		}

		_, err = s.store.Write(ctx, objectName, data, blob.WriteOptions{
			ContentType:     sheet.ContentType,
			ExpectedVersion: &version,
		})
		if errors.Is(err, blob.ErrVersionConflict) {
			if s.metrics != nil {
				s.metrics.VersionConflicts.Inc()
			}
			s.logger.Warn("log save conflict, re-deriving",
				zap.String("user", userKey),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return fmt.Errorf("storage: save log: %w", err)
		}

		// Record the post-submission pointer for display and clear any
		// consumed operator override. Failure here never corrupts the log.
		if err := s.controls.Set(ctx, userKey, controls.State{NextChip: nextPointer}); err != nil {
			s.logger.Error("update controls failed", zap.String("user", userKey), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RowsWritten.Add(float64(len(rows)))
		}
		s.logger.Info("submission saved",
			zap.String("user", userKey),
			zap.String("date", parsed.Date),
			zap.Int("reactions", parsed.RxnNumber),
			zap.Int("rows", len(rows)),
			zap.Int("next_chip", nextPointer),
			zap.Int("attempt", attempt))
		return nil
	}
	return ErrLogBusy
}

// Download returns the current log workbook for a user, creating an empty
// header-only workbook when the user has none.
func (s *Service) Download(ctx context.Context, userFirstName string) (string, []byte, error) {
	if userFirstName == "" {
		return "", nil, ValidationError{Field: "user"}
	}
	userKey := safeUserKey(userFirstName)
	objectName, err := s.ensureLogObject(ctx, userKey)
	if err != nil {
		return "", nil, err
	}
	data, _, err := s.store.Read(ctx, objectName)
	if errors.Is(err, blob.ErrNotFound) {
		data, err = sheet.NewLog().Bytes()
		if err != nil {
			return "", nil, err
		}
		return path.Base(objectName), data, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("storage: read log: %w", err)
	}
	return path.Base(objectName), data, nil
}

// NextChip reports the stored next-chip counter for a user.
func (s *Service) NextChip(ctx context.Context, userFirstName string) (int, bool, error) {
	st, ok, err := s.controls.Get(ctx, safeUserKey(userFirstName))
	if err != nil {
		return 0, false, fmt.Errorf("storage: read controls: %w", err)
	}
	return st.NextChip, ok, nil
}

// SetNextChip stores an operator override that takes precedence on the next
// allocation for the user.
func (s *Service) SetNextChip(ctx context.Context, userFirstName string, next int) error {
	if userFirstName == "" {
		return ValidationError{Field: "user"}
	}
	if next < 0 {
		return ValidationError{Field: "new_counter", Reason: "must be a non-negative integer"}
	}
	if err := s.controls.Set(ctx, safeUserKey(userFirstName), controls.State{NextChip: next, Operator: true}); err != nil {
		return fmt.Errorf("storage: save controls: %w", err)
	}
	return nil
}

// ResetCounters clears all stored per-user counters. Sheet-derived state is
// untouched, so the next submissions re-derive from log content.
func (s *Service) ResetCounters(ctx context.Context) error {
	if err := s.controls.Reset(ctx); err != nil {
		return fmt.Errorf("storage: reset controls: %w", err)
	}
	return nil
}
