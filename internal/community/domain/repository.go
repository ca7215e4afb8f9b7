package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ListFilter struct {
	Status   Status
	Type     Type
	MemberID snowflake.ID
	Cursor   snowflake.ID
	Limit    int
}

// CommunityUpdate carries the mutable profile fields. Nil pointers are
// left untouched.
type CommunityUpdate struct {
	Description *string
	Image       *string
	Categories  []byte
}

// Repository persists the community aggregate. The composite methods
// (AddMember, RemoveMember, AddFollower, ...) mutate the set row and
// the counter on the community row in one transaction; callers never
// see a state where the two disagree.
type Repository interface {
	Create(ctx context.Context, community *Community) error
	GetByID(ctx context.Context, id snowflake.ID) (*Community, error)
	GetByName(ctx context.Context, name string) (*Community, error)
	List(ctx context.Context, filter ListFilter) ([]*Community, error)
	Update(ctx context.Context, id snowflake.ID, update CommunityUpdate) (*Community, error)
	Delete(ctx context.Context, id snowflake.ID) error

	// CreateJoinRequest returns false when a request for the pair
	// already exists.
	CreateJoinRequest(ctx context.Context, request *JoinRequest) (bool, error)
	DeleteJoinRequest(ctx context.Context, communityID, userID snowflake.ID) (bool, error)
	HasJoinRequest(ctx context.Context, communityID, userID snowflake.ID) (bool, error)
	ListJoinRequests(ctx context.Context, communityID snowflake.ID) ([]JoinRequest, error)

	// AddMember removes any pending join request for the pair, inserts
	// the member row, and increments members_count atomically. Returns
	// false when the user already is a member.
	AddMember(ctx context.Context, member *Member) (bool, error)
	RemoveMember(ctx context.Context, communityID, userID snowflake.ID) (bool, error)
	IsMember(ctx context.Context, communityID, userID snowflake.ID) (bool, error)
	ListMembers(ctx context.Context, communityID snowflake.ID) ([]Member, error)

	AddFollower(ctx context.Context, follower *Follower) (bool, error)
	RemoveFollower(ctx context.Context, communityID, userID snowflake.ID) (bool, error)
	IsFollower(ctx context.Context, communityID, userID snowflake.ID) (bool, error)
	ListFollowers(ctx context.Context, communityID snowflake.ID) ([]Follower, error)

	IsAuthorized(ctx context.Context, communityID, userID snowflake.ID) (bool, error)
	ListAuthorizedPersons(ctx context.Context, communityID snowflake.ID) ([]AuthorizedPerson, error)

	CreateInvite(ctx context.Context, invite *Invite) error
	// RefreshInvite updates the code and expiry of an existing invite for
	// the same invitee, matched by user id when bound and by email
	// otherwise, returning nil when none exists. A nonzero userID is
	// written back so an invitee who registered since the first invite
	// becomes bound on resend.
	RefreshInvite(ctx context.Context, communityID, userID snowflake.ID, email, otp string, expires, invitedAt time.Time) (*Invite, error)
	// FindInviteByOTP matches an invite either bound to the user or
	// not bound to anyone.
	FindInviteByOTP(ctx context.Context, communityID, userID snowflake.ID, otp string) (*Invite, error)

	// ConfirmInvite deletes the invite, inserts the authorized-person
	// row, increments approval_count, and flips a Pending community to
	// Active once the count reaches threshold, all in one transaction.
	// The returned community reflects the post-confirmation state;
	// activated is true only for the call that performed the flip.
	ConfirmInvite(ctx context.Context, invite *Invite, person *AuthorizedPerson, threshold int) (community *Community, activated bool, err error)

	// SetEmailOTP stores a fresh verification code for the single-
	// creator channel.
	SetEmailOTP(ctx context.Context, communityID snowflake.ID, otp string, expires time.Time) error
	// ConfirmEmailOTP clears the stored code, marks the email verified,
	// and flips a Pending community to Active in one transaction.
	ConfirmEmailOTP(ctx context.Context, communityID snowflake.ID) (community *Community, activated bool, err error)
}
