package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/domain/share"
	"stagelink/internal/domain/user"
	"stagelink/internal/lifecycle"
	"stagelink/internal/notify"
	"stagelink/internal/store"
)

const shareTokenBytes = 24

type ShareService struct {
	shares     share.Repository
	store      store.Store
	users      user.Repository
	guard      *lifecycle.Guard
	dispatcher Dispatcher
	baseURL    string
	now        func() time.Time
}

func NewShareService(shares share.Repository, st store.Store, users user.Repository, guard *lifecycle.Guard, dispatcher Dispatcher, baseURL string) *ShareService {
	return &ShareService{
		shares:     shares,
		store:      st,
		users:      users,
		guard:      guard,
		dispatcher: dispatcher,
		baseURL:    baseURL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type CreatedShare struct {
	ID    common.UUID `json:"id"`
	Type  share.Type  `json:"type"`
	Token string      `json:"token"`
	URL   string      `json:"url"`
}

// Create checks the caller may expose the target, captures the redacted
// snapshot and mints a unique opaque token. The snapshot is frozen here:
// later changes to the target never leak through the link.
func (s *ShareService) Create(ctx context.Context, p principal.Principal, shareType share.Type, targetID common.UUID, note string, expiresAt *time.Time) (*CreatedShare, error) {
	if p.IsAnonymous() {
		return nil, common.NewError(common.CodeUnauthorized, "authentication required", nil)
	}
	if _, ok := share.ParseType(string(shareType)); !ok {
		return nil, common.NewValidationError("invalid share", map[string]string{"type": "type must be job, company, or user"})
	}
	if targetID.IsZero() {
		return nil, common.NewValidationError("invalid share", map[string]string{"targetId": "targetId is required"})
	}

	payload, err := s.snapshot(ctx, p, shareType, targetID)
	if err != nil {
		return nil, err
	}

	token, err := s.uniqueToken(ctx)
	if err != nil {
		return nil, err
	}

	created, err := s.shares.Create(ctx, share.Share{
		Type:      shareType,
		TargetID:  targetID,
		Token:     token,
		CreatedBy: p.UserID,
		Note:      note,
		Payload:   payload,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}
	return &CreatedShare{
		ID:    created.ID,
		Type:  created.Type,
		Token: created.Token,
		URL:   s.baseURL + "/shares/" + created.Token,
	}, nil
}

// GetByID is the management view: full record, creator or admin only.
func (s *ShareService) GetByID(ctx context.Context, p principal.Principal, id common.UUID) (*share.Share, error) {
	if p.IsAnonymous() {
		return nil, common.NewError(common.CodeUnauthorized, "authentication required", nil)
	}
	rec, err := s.shares.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && rec.CreatedBy != p.UserID {
		return nil, common.NewError(common.CodeForbidden, "not authorized to view this share", nil)
	}
	return rec, nil
}

// ResolveToken is the public open path. Disabled and expired links are Gone
// and do not count as opens; the creator is pinged exactly once, on the
// first open ever.
func (s *ShareService) ResolveToken(ctx context.Context, token string) (*share.View, error) {
	rec, err := s.shares.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if rec.DisabledAt != nil {
		return nil, common.NewError(common.CodeGone, "share disabled", nil)
	}
	if rec.ExpiresAt != nil && !rec.ExpiresAt.After(s.now()) {
		return nil, common.NewError(common.CodeGone, "share expired", nil)
	}

	previous, err := s.shares.IncrementClicks(ctx, rec.ID)
	if err == nil && previous == 0 {
		s.notifyFirstOpen(ctx, rec)
	}

	return &share.View{Type: rec.Type, Payload: rec.Payload, CreatedAt: rec.CreatedAt}, nil
}

// Disable revokes the link. First write wins on disabledAt so the audit
// timestamp records the original revocation.
func (s *ShareService) Disable(ctx context.Context, p principal.Principal, id common.UUID) (*share.Share, error) {
	if p.IsAnonymous() {
		return nil, common.NewError(common.CodeUnauthorized, "authentication required", nil)
	}
	rec, err := s.shares.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && rec.CreatedBy != p.UserID {
		return nil, common.NewError(common.CodeForbidden, "not authorized to disable this share", nil)
	}
	return s.shares.Disable(ctx, id, s.now())
}

func (s *ShareService) ListMine(ctx context.Context, p principal.Principal) ([]share.Share, error) {
	if p.IsAnonymous() {
		return nil, common.NewError(common.CodeUnauthorized, "authentication required", nil)
	}
	return s.shares.ListByCreator(ctx, p.UserID)
}

func (s *ShareService) notifyFirstOpen(ctx context.Context, rec *share.Share) {
	role := principal.RoleStudent
	if owner, err := s.users.GetByID(ctx, rec.CreatedBy); err == nil && len(owner.Roles) > 0 {
		role = owner.Roles[0]
	}
	s.dispatcher.Enqueue(notify.Delivery{
		RecipientID: rec.CreatedBy,
		Role:        role,
		Type:        "share_opened",
		Title:       "Share link opened",
		Body:        "Someone opened your share link.",
		Data: map[string]any{
			"shareId":  rec.ID.String(),
			"type":     string(rec.Type),
			"targetId": rec.TargetID.String(),
		},
	})
}

func (s *ShareService) uniqueToken(ctx context.Context) (string, error) {
	for {
		buf := make([]byte, shareTokenBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", common.NewError(common.CodeInternal, "failed to generate share token", err)
		}
		token := base64.RawURLEncoding.EncodeToString(buf)
		exists, err := s.shares.TokenExists(ctx, token)
		if err != nil {
			return "", err
		}
		if !exists {
			return token, nil
		}
	}
}

// snapshot builds the redacted payload per share type, enforcing the same
// ownership rules the lifecycle guard applies to mutations.
func (s *ShareService) snapshot(ctx context.Context, p principal.Principal, shareType share.Type, targetID common.UUID) (map[string]any, error) {
	switch shareType {
	case share.TypeUser:
		target, err := s.users.GetByID(ctx, targetID)
		if err != nil {
			return nil, err
		}
		if target.ID != p.UserID && !p.IsAdmin() {
			return nil, common.NewError(common.CodeForbidden, "not allowed to share this user profile", nil)
		}
		return userSnapshot(target), nil
	case share.TypeCompany:
		target, err := s.store.FindByID(ctx, store.KindCompany, targetID)
		if err != nil {
			return nil, err
		}
		if err := s.requireCompanyOwnership(ctx, p, target.ID); err != nil {
			return nil, err
		}
		return companySnapshot(target.Attrs), nil
	case share.TypeJob:
		target, err := s.store.FindByID(ctx, store.KindListing, targetID)
		if err != nil {
			return nil, err
		}
		if err := s.requireCompanyOwnership(ctx, p, target.CompanyID); err != nil {
			return nil, err
		}
		snapshot := jobSnapshot(target.Attrs)
		if company, err := s.store.FindByID(ctx, store.KindCompany, target.CompanyID); err == nil {
			snapshot["company"] = companySnapshot(company.Attrs)
		}
		return snapshot, nil
	default:
		return nil, common.NewValidationError("invalid share", map[string]string{"type": "unknown share type"})
	}
}

func (s *ShareService) requireCompanyOwnership(ctx context.Context, p principal.Principal, companyID common.UUID) error {
	if p.IsAdmin() {
		return nil
	}
	if p.Role == principal.RoleCompany {
		company, err := s.guard.CompanyForUser(ctx, p.UserID)
		if err == nil && company.ID == companyID {
			return nil
		}
	}
	return common.NewError(common.CodeForbidden, "not allowed to share this resource", nil)
}

// userSnapshot keeps the public intern profile only: never contact or auth
// fields.
func userSnapshot(u *user.User) map[string]any {
	snapshot := map[string]any{
		"firstName": u.FirstName,
		"lastName":  u.LastName,
	}
	for _, field := range []string{"avatar", "location", "university", "major", "graduationYear"} {
		if value, ok := u.Profile[field]; ok {
			snapshot[field] = value
		}
	}
	if skills, ok := u.Profile["skills"].([]any); ok {
		if len(skills) > 20 {
			skills = skills[:20]
		}
		snapshot["skills"] = skills
	}
	return snapshot
}

func companySnapshot(attrs map[string]any) map[string]any {
	snapshot := map[string]any{}
	for _, field := range []string{"name", "industry", "website", "description", "logo"} {
		if value, ok := attrs[field]; ok {
			snapshot[field] = value
		}
	}
	return snapshot
}

func jobSnapshot(attrs map[string]any) map[string]any {
	snapshot := map[string]any{}
	for _, field := range []string{"title", "description", "location", "salaryRange", "expiresAt"} {
		if value, ok := attrs[field]; ok {
			snapshot[field] = value
		}
	}
	return snapshot
}
