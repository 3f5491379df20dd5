package discover

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

type ListCandidatesRequest struct {
	Filters Filters `json:"filters"`
}

type ListCandidatesResponse struct {
	Profiles []domain.Profile `json:"profiles"`
}

type CountriesResponse struct {
	Countries []string `json:"countries"`
}

type PassRequest struct {
	TargetUserID string `json:"targetUserId"`
}

// Service implements discovery: which profiles a user may browse.
type Service struct {
	appCtx *app.AppContext
}

func NewDiscoverService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// ListCandidates returns the profiles the caller may discover.
//
// Behavior:
//   - Reads users, the caller's conversation metas and block list once.
//   - Applies Visible with the request filters (defaults for unset fields).
//   - Returns profiles ordered by id.
//
// Example:
//
//	svc.ListCandidates(ctx, &discover.ListCandidatesRequest{Filters: discover.Filters{MinAge: 25, MaxAge: 35}})
func (s *Service) ListCandidates(ctx context.Context, req *ListCandidatesRequest) (*ListCandidatesResponse, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	filters, err := req.Filters.Resolve()
	if err != nil {
		return nil, err
	}
	s.appCtx.Log(ctx).Debug("ListCandidates called", "user", uid, "filters", filters)

	snaps := make([]tree.Snapshot, 0, 3)
	for _, p := range viewerPaths(uid) {
		snap, err := store.Get(ctx, p)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}

	resp := evaluate(uid, filters, snaps)
	s.appCtx.Log(ctx).Debug("ListCandidates result", "user", uid, "count", len(resp.Profiles))
	return resp, nil
}

// WatchCandidates streams the candidate list, re-evaluated whenever the
// profiles, the caller's conversations or block list change. Identical
// consecutive results are sent once.
func (s *Service) WatchCandidates(ctx context.Context, req *ListCandidatesRequest, send func(*ListCandidatesResponse) error) error {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return err
	}
	filters, err := req.Filters.Resolve()
	if err != nil {
		return err
	}

	updates, err := tree.SubscribeAll(ctx, store, viewerPaths(uid)...)
	if err != nil {
		return err
	}

	var last []byte
	for snaps := range updates {
		resp := evaluate(uid, filters, snaps)
		b, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		if last != nil && bytes.Equal(b, last) {
			continue
		}
		last = b
		if err := send(resp); err != nil {
			return err
		}
	}
	return nil
}

// Countries returns the country filter choices.
func (s *Service) Countries(ctx context.Context, _ *emptypb.Empty) (*CountriesResponse, error) {
	store, _, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	users, err := store.Get(ctx, domain.UsersRoot)
	if err != nil {
		return nil, err
	}
	return &CountriesResponse{Countries: Countries(domain.DecodeProfiles(users))}, nil
}

// Pass records that the caller passed on a profile.
func (s *Service) Pass(ctx context.Context, req *PassRequest) (*emptypb.Empty, error) {
	store, uid, err := s.appCtx.StoreFor(ctx)
	if err != nil {
		return nil, err
	}
	target := strings.TrimSpace(req.TargetUserID)
	if target == "" {
		return nil, svcErr.InvalidArgument("targetUserId is required")
	}
	if target == uid {
		return nil, svcErr.InvalidArgument("cannot pass on yourself")
	}
	if err := store.Set(ctx, domain.PassPath(uid, target), true); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

func viewerPaths(uid string) []string {
	return []string{domain.UsersRoot, domain.MetasPath(uid), domain.BlockedPath(uid)}
}

func evaluate(uid string, filters Filters, snaps []tree.Snapshot) *ListCandidatesResponse {
	users, metas, blocked := snaps[0], snaps[1], snaps[2]
	viewer := NewViewer(uid, users, metas, blocked)
	return &ListCandidatesResponse{Profiles: Visible(viewer, filters, domain.DecodeProfiles(users))}
}
