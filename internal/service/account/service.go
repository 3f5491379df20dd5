package account

import (
	"context"
	"slices"
	"sort"
	"strings"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/lookup"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

// Setting keys accepted by UpdateSetting.
const (
	SettingPublic        = "isPublic"
	SettingIncognito     = "incognitoMode"
	SettingNotifications = "notifications"
)

type CompleteRegistrationRequest struct {
	Name      string   `json:"name"`
	Age       int      `json:"age"`
	Email     string   `json:"email,omitempty"`
	Gender    string   `json:"gender"`
	Seeking   string   `json:"seeking"`
	Location  string   `json:"location,omitempty"`
	Country   string   `json:"country"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	Interests []string `json:"interests,omitempty"`
	Goal      string   `json:"goal,omitempty"`
	Religion  string   `json:"religion,omitempty"`
}

// UpdateProfileRequest changes the fields that are set; nil leaves a field as is.
type UpdateProfileRequest struct {
	Name      *string  `json:"name,omitempty"`
	Bio       *string  `json:"bio,omitempty"`
	Interests []string `json:"interests,omitempty"`
	ImageURL  *string  `json:"imageUrl,omitempty"`
}

type GetProfileRequest struct {
	UserID string `json:"userId,omitempty"`
}

type ProfileResponse struct {
	Profile domain.Profile `json:"profile"`
}

type UpdateSettingRequest struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

type SettingsResponse struct {
	Settings domain.Settings `json:"settings"`
}

type BlockRequest struct {
	TargetUserID string `json:"targetUserId"`
	Confirm      bool   `json:"confirm"`
}

type UnblockRequest struct {
	TargetUserID string `json:"targetUserId"`
}

// BlockedUser is one entry of the block list. Name is the anonymous
// placeholder when the profile no longer exists.
type BlockedUser struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type ListBlockedResponse struct {
	Users []BlockedUser `json:"users"`
}

type DeleteAccountRequest struct {
	Confirm    bool   `json:"confirm"`
	Credential string `json:"credential"`
}

// Service implements profile, settings, block list, badges and account deletion.
type Service struct {
	appCtx *app.AppContext
}

// NewAccountService creates a new Account service with dependencies from AppContext.
func NewAccountService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// CompleteRegistration finishes onboarding and marks the profile complete.
//
// Behavior:
//   - Requires name, age of at least 18, gender, seeking and country.
//   - interest takes the first interest, "Général" by default; religion
//     defaults to "Non spécifié".
//   - Writes each field on its own path so the likes and passes stored
//     under the profile survive.
//
// Example:
//
//	svc.CompleteRegistration(ctx, &account.CompleteRegistrationRequest{Name: "Ana", Age: 28, ...})
func (s *Service) CompleteRegistration(ctx context.Context, req *CompleteRegistrationRequest) (*ProfileResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	country := strings.TrimSpace(req.Country)
	switch {
	case name == "":
		return nil, svcErr.InvalidArgument("name is required")
	case req.Age < domain.MinAge || req.Age > domain.MaxAge:
		return nil, svcErr.InvalidArgument("age must be between 18 and 99")
	case req.Gender != domain.GenderMale && req.Gender != domain.GenderFemale:
		return nil, svcErr.InvalidArgument("invalid gender")
	case !slices.Contains([]string{domain.SeekingMen, domain.SeekingWomen, domain.SeekingAll}, req.Seeking):
		return nil, svcErr.InvalidArgument("invalid seeking")
	case country == "" || country == domain.AllCountries:
		return nil, svcErr.InvalidArgument("country is required")
	}

	interests := cleanList(req.Interests)
	religion := strings.TrimSpace(req.Religion)
	if religion == "" {
		religion = domain.DefaultReligion
	}

	fields := map[string]any{
		"id":         uid,
		"name":       name,
		"age":        req.Age,
		"gender":     req.Gender,
		"seeking":    req.Seeking,
		"country":    country,
		"location":   strings.TrimSpace(req.Location),
		"imageUrl":   strings.TrimSpace(req.ImageURL),
		"bio":        strings.TrimSpace(req.Bio),
		"interests":  interests,
		"interest":   domain.PrimaryInterest(interests),
		"goal":       strings.TrimSpace(req.Goal),
		"religion":   religion,
		"email":      strings.TrimSpace(req.Email),
		"isComplete": true,
	}
	if err := store.Update(ctx, profileUpdate(uid, fields)); err != nil {
		return nil, err
	}
	s.appCtx.Log(ctx).Info("registration completed", "user", uid)
	return s.GetProfile(ctx, &GetProfileRequest{})
}

// UpdateProfile edits the name, bio, interests or photo of the caller.
func (s *Service) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*ProfileResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, svcErr.InvalidArgument("name cannot be empty")
		}
		fields["name"] = name
	}
	if req.Bio != nil {
		fields["bio"] = strings.TrimSpace(*req.Bio)
	}
	if req.ImageURL != nil {
		fields["imageUrl"] = strings.TrimSpace(*req.ImageURL)
	}
	if req.Interests != nil {
		interests := cleanList(req.Interests)
		fields["interests"] = interests
		fields["interest"] = domain.PrimaryInterest(interests)
	}
	if len(fields) == 0 {
		return nil, svcErr.InvalidArgument("nothing to update")
	}

	current, err := store.Get(ctx, domain.UserPath(uid))
	if err != nil {
		return nil, err
	}
	if !current.Exists() {
		return nil, svcErr.NotFound("profile")
	}
	if err := store.Update(ctx, profileUpdate(uid, fields)); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, &GetProfileRequest{})
}

// GetProfile reads a profile once; an empty UserID means the caller.
func (s *Service) GetProfile(ctx context.Context, req *GetProfileRequest) (*ProfileResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	id := uid
	if strings.TrimSpace(req.UserID) != "" {
		if id, err = lookup.User(req.UserID); err != nil {
			return nil, err
		}
	}
	snap, err := store.Get(ctx, domain.UserPath(id))
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, svcErr.NotFound("user " + id)
	}
	p, err := domain.DecodeProfile(snap)
	if err != nil {
		return nil, err
	}
	return &ProfileResponse{Profile: p}, nil
}

// UpdateSetting flips one privacy switch and returns the resolved settings.
func (s *Service) UpdateSetting(ctx context.Context, req *UpdateSettingRequest) (*SettingsResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	switch req.Key {
	case SettingPublic, SettingIncognito, SettingNotifications:
	default:
		return nil, svcErr.InvalidArgument("unknown setting " + req.Key)
	}
	if err := store.Set(ctx, domain.SettingPath(uid, req.Key), req.Value); err != nil {
		return nil, err
	}
	resp, err := s.GetProfile(ctx, &GetProfileRequest{})
	if err != nil {
		return nil, err
	}
	return &SettingsResponse{Settings: resp.Profile.Settings}, nil
}

// Block hides target from the caller. It needs an explicit confirmation.
func (s *Service) Block(ctx context.Context, req *BlockRequest) (*emptypb.Empty, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	target, err := lookup.OtherUser(req.TargetUserID, uid)
	if err != nil {
		return nil, err
	}
	if !req.Confirm {
		return nil, svcErr.ErrConfirmationRequired
	}
	if err := store.Set(ctx, domain.BlockPath(uid, target), domain.BlockRecord{Timestamp: s.appCtx.NowMillis()}); err != nil {
		return nil, err
	}
	s.appCtx.Log(ctx).Info("user blocked", "user", uid, "target", target)
	return &emptypb.Empty{}, nil
}

func (s *Service) Unblock(ctx context.Context, req *UnblockRequest) (*emptypb.Empty, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	target, err := lookup.OtherUser(req.TargetUserID, uid)
	if err != nil {
		return nil, err
	}
	if err := store.Delete(ctx, domain.BlockPath(uid, target)); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

// ListBlocked returns the block list, most recent first.
func (s *Service) ListBlocked(ctx context.Context, _ *emptypb.Empty) (*ListBlockedResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := store.Get(ctx, domain.BlockedPath(uid))
	if err != nil {
		return nil, err
	}
	profiles, err := lookup.Profiles(ctx, store, snap.Keys(), nil)
	if err != nil {
		return nil, err
	}

	resp := &ListBlockedResponse{Users: []BlockedUser{}}
	for _, c := range snap.Children() {
		var rec domain.BlockRecord
		if err := c.Unmarshal(&rec); err != nil {
			continue
		}
		u := BlockedUser{UserID: c.Key(), Name: domain.AnonymousName, Timestamp: rec.Timestamp}
		if p, ok := profiles[c.Key()]; ok {
			u.Name = p.DisplayName()
			u.ImageURL = p.ImageURL
		}
		resp.Users = append(resp.Users, u)
	}
	sort.Slice(resp.Users, func(i, j int) bool {
		if resp.Users[i].Timestamp != resp.Users[j].Timestamp {
			return resp.Users[i].Timestamp > resp.Users[j].Timestamp
		}
		return resp.Users[i].UserID < resp.Users[j].UserID
	})
	return resp, nil
}

// DeleteAccount removes everything the caller owns, then the account.
//
// Behavior:
//   - Requires confirm and a fresh credential (password or recent ID token).
//   - Withdraws the caller's likes from the other users' inboxes.
//   - Removes users/{me}, user_chats/{me}, likes/{me} and blocked_users/{me}
//     in one update. Messages and the counterparts' ConversationMeta stay.
//   - Deletes the auth account last.
func (s *Service) DeleteAccount(ctx context.Context, req *DeleteAccountRequest) (*emptypb.Empty, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	if !req.Confirm {
		return nil, svcErr.ErrConfirmationRequired
	}
	if s.appCtx.Auth == nil {
		return nil, svcErr.ErrUnauthenticated
	}
	if err := s.appCtx.Auth.Reverify(ctx, uid, req.Credential); err != nil {
		return nil, err
	}

	outbound, err := store.Get(ctx, domain.SelfLikesPath(uid))
	if err != nil {
		return nil, err
	}
	removals := map[string]any{
		domain.UserPath(uid):    nil,
		domain.MetasPath(uid):   nil,
		domain.InboxPath(uid):   nil,
		domain.BlockedPath(uid): nil,
	}
	targets := outbound.Keys()
	for _, target := range targets {
		removals[domain.LikePath(target, uid)] = nil
	}
	if err := store.Update(ctx, removals); err != nil {
		return nil, err
	}

	if err := s.appCtx.Auth.DeleteUser(ctx, uid); err != nil {
		return nil, err
	}
	s.appCtx.InvalidateBadges(ctx, append(targets, uid)...)
	s.appCtx.Log(ctx).Info("account deleted", "user", uid, "withdrawn_likes", len(targets))
	return &emptypb.Empty{}, nil
}

// profileUpdate maps profile fields to their paths under users/{uid}.
func profileUpdate(uid string, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[tree.Join(domain.UserPath(uid), k)] = v
	}
	return out
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
