package aggregation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/domain/repository"
)

var errEmptyAccountID = errors.New("identity lookup returned an empty account id")

// SessionResolver builds ProfileSessions through the credential provider.
type SessionResolver struct {
	credentials repository.CredentialProvider
	timeout     time.Duration
	logger      *zap.Logger
}

// NewSessionResolver cria o resolver; timeout <= 0 desativa o limite por chamada.
func NewSessionResolver(credentials repository.CredentialProvider, timeout time.Duration, logger *zap.Logger) *SessionResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionResolver{credentials: credentials, timeout: timeout, logger: logger}
}

// Resolve performs the identity lookup for one profile. A failure marks the
// session unresolved instead of returning an error.
func (r *SessionResolver) Resolve(ctx context.Context, profile string, regions []string) *entity.ProfileSession {
	session := entity.NewProfileSession(profile, regions)

	callCtx, cancel := withCallTimeout(ctx, r.timeout)
	defer cancel()

	accountID, err := r.credentials.ResolveIdentity(callCtx, profile)
	if err == nil && accountID == "" {
		err = errEmptyAccountID
	}
	if err != nil {
		r.logger.Warn("identity lookup failed", zap.String("profile", profile), zap.Error(err))
		session.MarkUnresolved(err)
		return session
	}

	_ = session.SetAccountID(accountID)
	r.logger.Debug("identity resolved", zap.String("profile", profile), zap.String("account_id", accountID))
	return session
}

// ResolveAll resolve todos os perfis concorrentemente. A ordem das sessões segue
// a ordem de profiles. Só retorna erro se ctx for cancelado.
func (r *SessionResolver) ResolveAll(ctx context.Context, profiles, regions []string, workers int) ([]*entity.ProfileSession, []*entity.RunError, error) {
	sessions := make([]*entity.ProfileSession, len(profiles))

	err := runBounded(ctx, workers, len(profiles), func(ctx context.Context, i int) {
		sessions[i] = r.Resolve(ctx, profiles[i], regions)
	})
	if err != nil {
		return nil, nil, err
	}

	var errs []*entity.RunError
	for _, s := range sessions {
		if !s.Resolved() {
			errs = append(errs, entity.NewRunError(entity.KindIdentityUnresolved, s.ProfileName, "", nil, s.Err()))
		}
	}
	return sessions, errs, nil
}

func withCallTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
