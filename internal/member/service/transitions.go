package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"memberd/internal/audit"
	"memberd/internal/authz"
	"memberd/internal/member/models"
	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
	"memberd/pkg/requestcontext"
)

// Approve moves a pending member to approved, recording the reviewer.
// Approving twice fails: the transition check treats approved as a dead end
// for approval, so the original reviewer record is never overwritten.
func (s *Service) Approve(ctx context.Context, memberID id.MemberID) (*models.Member, error) {
	m, err := s.transition(ctx, memberID, authz.MemberApprove, audit.ActionApproveMember, nil,
		func(m *models.Member) error { return m.CanApprove() },
		func(m *models.Member, actor id.UserID, now time.Time) { m.ApplyApproval(actor, now) })
	if err != nil {
		return nil, err
	}
	s.metrics.MembersApproved.Inc()
	return m, nil
}

// Reject moves a pending member to rejected. The reason is mandatory and
// lives only in the audit entry, validated before any state is read so a
// bad request cannot consume the transition.
func (s *Service) Reject(ctx context.Context, memberID id.MemberID, reason string) (*models.Member, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "rejection reason is required")
	}
	extra := map[string]string{"reason": reason}
	m, err := s.transition(ctx, memberID, authz.MemberApprove, audit.ActionRejectMember, extra,
		func(m *models.Member) error { return m.CanReject() },
		func(m *models.Member, _ id.UserID, now time.Time) { m.ApplyRejection(now) })
	if err != nil {
		return nil, err
	}
	s.metrics.MembersRejected.Inc()
	return m, nil
}

// Suspend moves an approved member to suspended.
func (s *Service) Suspend(ctx context.Context, memberID id.MemberID) (*models.Member, error) {
	return s.transition(ctx, memberID, authz.MemberSuspend, audit.ActionSuspendMember, nil,
		func(m *models.Member) error { return m.CanSuspend() },
		func(m *models.Member, _ id.UserID, now time.Time) { m.ApplySuspension(now) })
}

// Reinstate moves a suspended member back to approved without touching the
// original approval record.
func (s *Service) Reinstate(ctx context.Context, memberID id.MemberID) (*models.Member, error) {
	return s.transition(ctx, memberID, authz.MemberSuspend, audit.ActionReinstateMember, nil,
		func(m *models.Member) error { return m.CanReinstate() },
		func(m *models.Member, _ id.UserID, now time.Time) { m.ApplyReinstatement(now) })
}

// SoftDelete tombstones a member. The row, its number and its history stay;
// the member just stops being visible to default reads and transitions.
func (s *Service) SoftDelete(ctx context.Context, memberID id.MemberID) error {
	_, err := s.transition(ctx, memberID, authz.MemberDelete, audit.ActionDeleteMember, nil,
		func(m *models.Member) error { return m.CanSoftDelete() },
		func(m *models.Member, actor id.UserID, now time.Time) { m.ApplySoftDelete(actor, now) })
	return err
}

// transition runs one lifecycle change under the member's row lock and
// writes its audit entry in the same transaction: a failed validation means
// no entry, a failed entry means no transition.
func (s *Service) transition(ctx context.Context, memberID id.MemberID,
	capability authz.Capability, action audit.Action, extra map[string]string,
	validate func(*models.Member) error,
	apply func(*models.Member, id.UserID, time.Time)) (*models.Member, error) {

	if err := requireCapability(ctx, capability); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	actor := requestcontext.ActorID(ctx)

	var (
		updated *models.Member
		before  []byte
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		m, err := s.members.Execute(txCtx, memberID,
			func(m *models.Member) error {
				if err := validate(m); err != nil {
					return err
				}
				before = audit.Snapshot(m)
				return nil
			},
			func(m *models.Member) { apply(m, actor, now) },
		)
		if err != nil {
			return wrapMemberErr(err)
		}
		if err := s.audit.Record(txCtx, audit.Entry{
			Action:     action,
			EntityType: audit.EntityMember,
			EntityID:   m.ID.String(),
			OldValues:  before,
			NewValues:  snapshotWith(m, extra),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// snapshotWith merges extra key/value context (like a rejection reason) into
// the member snapshot.
func snapshotWith(m *models.Member, extra map[string]string) json.RawMessage {
	if len(extra) == 0 {
		return audit.Snapshot(m)
	}
	var merged map[string]any
	if err := json.Unmarshal(audit.Snapshot(m), &merged); err != nil {
		merged = map[string]any{}
	}
	for k, v := range extra {
		merged[k] = v
	}
	b, err := json.Marshal(merged)
	if err != nil {
		return audit.Snapshot(m)
	}
	return b
}
