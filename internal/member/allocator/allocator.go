// Package allocator assigns member numbers.
//
// Numbers form one monotonic sequence per membership type, seeded from the
// type's numeric id_prefix: the first member gets the prefix itself, each
// subsequent member gets the numerically next value. Correctness depends on
// the caller holding the type's lock for the whole allocate-and-insert
// window; Allocator.Next must therefore run inside the same transaction as
// the member insert.
package allocator

import (
	"context"
	"errors"

	typemodels "memberd/internal/membershiptype/models"
	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
	"memberd/pkg/platform/sentinel"
)

// TypeLocker fetches a membership type while taking its lock, serializing
// concurrent allocations for the same type.
type TypeLocker interface {
	Lock(ctx context.Context, typeID id.MembershipTypeID) (*typemodels.MembershipType, error)
}

// NumberSource reports the numerically highest member number ever assigned
// for a type, including to soft-deleted members. Returns sentinel.ErrNotFound
// when the type has no members yet.
type NumberSource interface {
	HighestNumberForType(ctx context.Context, typeID id.MembershipTypeID) (id.MemberNumber, error)
}

type Allocator struct {
	types   TypeLocker
	numbers NumberSource
}

func New(types TypeLocker, numbers NumberSource) *Allocator {
	return &Allocator{types: types, numbers: numbers}
}

// Next locks the membership type and returns the next number in its
// sequence. Allocating against an unknown or deactivated type fails; the
// number of a deleted member is never reissued because deleted rows still
// count toward the highest value.
func (a *Allocator) Next(ctx context.Context, typeID id.MembershipTypeID) (id.MemberNumber, error) {
	t, err := a.types.Lock(ctx, typeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeInvalidMembershipType, "invalid membership type")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock membership type")
	}
	if !t.Active {
		return "", dErrors.New(dErrors.CodeInvalidMembershipType, "membership type is inactive")
	}

	highest, err := a.numbers.HighestNumberForType(ctx, typeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return t.FirstNumber(), nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read member number sequence")
	}
	return highest.Next(), nil
}
