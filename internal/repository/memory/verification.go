package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Crush-on-Study/Black-Market/internal/model"
)

var _ model.VerificationStore = (*VerificationStore)(nil)

// VerificationStore keeps verification attempts keyed by id.
type VerificationStore struct {
	s *state
}

func (r *VerificationStore) Open(_ context.Context, attempt model.VerificationAttempt) (model.VerificationAttempt, error) {
	for id, v := range r.s.verifications {
		if v.Email == attempt.Email && !v.Verified {
			delete(r.s.verifications, id)
		}
	}

	attempt.Verified = false
	r.s.verifications[attempt.ID] = attempt
	return attempt, nil
}

func (r *VerificationStore) FindActive(_ context.Context, email, code string, now time.Time) (model.VerificationAttempt, error) {
	for _, v := range r.s.verifications {
		if v.Email == email && v.Code == code && !v.Verified && !v.Expired(now) {
			return v, nil
		}
	}
	return model.VerificationAttempt{}, model.ErrNotFound
}

func (r *VerificationStore) GetByID(_ context.Context, id uuid.UUID) (model.VerificationAttempt, error) {
	v, ok := r.s.verifications[id]
	if !ok {
		return model.VerificationAttempt{}, model.ErrNotFound
	}
	return v, nil
}

func (r *VerificationStore) MarkVerified(_ context.Context, id uuid.UUID) error {
	v, ok := r.s.verifications[id]
	if !ok {
		return model.ErrNotFound
	}
	v.Verified = true
	r.s.verifications[id] = v
	return nil
}

func (r *VerificationStore) Consume(_ context.Context, id uuid.UUID) error {
	delete(r.s.verifications, id)
	return nil
}

func (r *VerificationStore) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, v := range r.s.verifications {
		if v.Expired(now) {
			delete(r.s.verifications, id)
			n++
		}
	}
	return n, nil
}
