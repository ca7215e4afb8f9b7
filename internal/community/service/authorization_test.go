package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pressroomhq/commune/internal/community/domain"
	"github.com/pressroomhq/commune/internal/otp"
	userdomain "github.com/pressroomhq/commune/internal/user/domain"
)

func TestInviteAndActivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	first := f.createUser(t, "Noa Reporter", "noa@example.org")
	second := f.createUser(t, "Sam Scout", "sam@example.org")
	community := f.createCommunity(t, creator.ID, domain.TypeMulti, "Harbor City Desk")

	invited, err := f.svc.InviteAuthorizedPerson(ctx, creator.ID, community.ID, first.Email)
	require.NoError(t, err)
	require.False(t, invited.Resent)
	require.Equal(t, first.ID, invited.Invite.UserID)
	require.Len(t, invited.Invite.OTP, otp.Digits)

	result, err := f.svc.VerifyAuthorizedOTP(ctx, community.ID, first.ID, invited.Invite.OTP)
	require.NoError(t, err)
	require.Equal(t, 1, result.ApprovalCount)
	require.False(t, result.Activated)
	require.Equal(t, domain.StatusPending, result.Community.Status)

	invited, err = f.svc.InviteAuthorizedPerson(ctx, creator.ID, community.ID, second.Email)
	require.NoError(t, err)

	result, err = f.svc.VerifyAuthorizedOTP(ctx, community.ID, second.ID, invited.Invite.OTP)
	require.NoError(t, err)
	require.Equal(t, 2, result.ApprovalCount)
	require.True(t, result.Activated)
	require.Equal(t, domain.StatusActive, result.Community.Status)

	persons, err := f.svc.ListAuthorizedPersons(ctx, community.ID)
	require.NoError(t, err)
	require.Len(t, persons, 2)

	// Confirmed invites are consumed.
	require.Zero(t, f.rowCount(t, &domain.Invite{}, community.ID))

	// The status flip is one-directional: approvals past the threshold
	// keep the community Active and keep counting.
	stored := f.reload(t, community.ID)
	require.Equal(t, domain.StatusActive, stored.Status)
}

func TestInviteForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	outsider := f.createUser(t, "Sam Stranger", "sam@example.org")
	community := f.createCommunity(t, creator.ID, domain.TypeMulti, "Harbor City Desk")

	_, err := f.svc.InviteAuthorizedPerson(ctx, outsider.ID, community.ID, "new@example.org")
	require.ErrorIs(t, err, domain.ErrForbidden)
	require.Zero(t, f.rowCount(t, &domain.Invite{}, community.ID))
}

func TestInviteResendInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	invitee := f.createUser(t, "Noa Reporter", "noa@example.org")
	community := f.createCommunity(t, creator.ID, domain.TypeMulti, "Harbor City Desk")

	firstInvite, err := f.svc.InviteAuthorizedPerson(ctx, creator.ID, community.ID, invitee.Email)
	require.NoError(t, err)

	f.clock.Advance(3 * time.Minute)

	secondInvite, err := f.svc.InviteAuthorizedPerson(ctx, creator.ID, community.ID, invitee.Email)
	require.NoError(t, err)
	require.True(t, secondInvite.Resent)

	// One row, refreshed in place.
	require.Equal(t, int64(1), f.rowCount(t, &domain.Invite{}, community.ID))
	require.Equal(t, firstInvite.Invite.ID, secondInvite.Invite.ID)
	require.True(t, secondInvite.Invite.OTPExpires.After(firstInvite.Invite.OTPExpires))

	// The superseded code no longer verifies unless it collides with
	// the fresh one.
	if firstInvite.Invite.OTP != secondInvite.Invite.OTP {
		_, err = f.svc.VerifyAuthorizedOTP(ctx, community.ID, invitee.ID, firstInvite.Invite.OTP)
		require.ErrorIs(t, err, domain.ErrInvalidOTP)
	}

	_, err = f.svc.VerifyAuthorizedOTP(ctx, community.ID, invitee.ID, secondInvite.Invite.OTP)
	require.NoError(t, err)
}

func TestInviteResendRebindsRegisteredInvitee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	community := f.createCommunity(t, creator.ID, domain.TypeMulti, "Harbor City Desk")

	// First invite goes out before the invitee has an account.
	firstInvite, err := f.svc.InviteAuthorizedPerson(ctx, creator.ID, community.ID, "freelancer@example.org")
	require.NoError(t, err)
	require.Zero(t, firstInvite.Invite.UserID)

	invitee := f.createUser(t, "Noa Reporter", "freelancer@example.org")

	secondInvite, err := f.svc.InviteAuthorizedPerson(ctx, creator.ID, community.ID, invitee.Email)
	require.NoError(t, err)
	require.True(t, secondInvite.Resent)
	require.Equal(t, firstInvite.Invite.ID, secondInvite.Invite.ID)
	require.Equal(t, invitee.ID, secondInvite.Invite.UserID)
	require.Equal(t, int64(1), f.rowCount(t, &domain.Invite{}, community.ID))
}

func TestInviteResendFollowsChangedAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	invitee := f.createUser(t, "Noa Reporter", "noa@example.org")
	community := f.createCommunity(t, creator.ID, domain.TypeMulti, "Harbor City Desk")

	firstInvite, err := f.svc.InviteAuthorizedPerson(ctx, creator.ID, community.ID, invitee.Email)
	require.NoError(t, err)
	require.Equal(t, invitee.ID, firstInvite.Invite.UserID)

	// The invitee now goes by a different address; a bound invite is
	// matched by identity, so the resend refreshes the same row instead
	// of stacking a second one.
	require.NoError(t, f.db.Model(&userdomain.User{}).
		Where("id = ?", invitee.ID).
		UpdateColumn("email", "noa.reporter@example.org").Error)

	secondInvite, err := f.svc.InviteAuthorizedPerson(ctx, creator.ID, community.ID, "noa.reporter@example.org")
	require.NoError(t, err)
	require.True(t, secondInvite.Resent)
	require.Equal(t, firstInvite.Invite.ID, secondInvite.Invite.ID)
	require.Equal(t, "noa.reporter@example.org", secondInvite.Invite.Email)
	require.Equal(t, int64(1), f.rowCount(t, &domain.Invite{}, community.ID))
}

func TestVerifyAuthorizedOTPExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	invitee := f.createUser(t, "Noa Reporter", "noa@example.org")
	community := f.createCommunity(t, creator.ID, domain.TypeMulti, "Harbor City Desk")

	invited, err := f.svc.InviteAuthorizedPerson(ctx, creator.ID, community.ID, invitee.Email)
	require.NoError(t, err)

	f.clock.Advance(11 * time.Minute)

	_, err = f.svc.VerifyAuthorizedOTP(ctx, community.ID, invitee.ID, invited.Invite.OTP)
	require.ErrorIs(t, err, domain.ErrOTPExpired)

	// Expired invites are not purged; a resend can revive them.
	require.Equal(t, int64(1), f.rowCount(t, &domain.Invite{}, community.ID))
	require.Zero(t, f.rowCount(t, &domain.AuthorizedPerson{}, community.ID))
	require.Equal(t, 0, f.reload(t, community.ID).ApprovalCount)
}

func TestUnboundInviteClaimable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	claimer := f.createUser(t, "Noa Reporter", "noa@example.org")
	community := f.createCommunity(t, creator.ID, domain.TypeMulti, "Harbor City Desk")

	// The invited address is not in the directory, so the invite is
	// bound to nobody.
	invited, err := f.svc.InviteAuthorizedPerson(ctx, creator.ID, community.ID, "freelancer@example.org")
	require.NoError(t, err)
	require.Zero(t, invited.Invite.UserID)

	result, err := f.svc.VerifyAuthorizedOTP(ctx, community.ID, claimer.ID, invited.Invite.OTP)
	require.NoError(t, err)
	require.Equal(t, 1, result.ApprovalCount)

	authorized, err := f.svc.ListAuthorizedPersons(ctx, community.ID)
	require.NoError(t, err)
	require.Len(t, authorized, 1)
	require.Equal(t, claimer.ID, authorized[0].UserID)
}

func TestVerifyAuthorizedOTPInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	invitee := f.createUser(t, "Noa Reporter", "noa@example.org")
	community := f.createCommunity(t, creator.ID, domain.TypeMulti, "Harbor City Desk")

	invited, err := f.svc.InviteAuthorizedPerson(ctx, creator.ID, community.ID, invitee.Email)
	require.NoError(t, err)

	// Derive a code guaranteed to differ from the issued one.
	wrong := []byte(invited.Invite.OTP)
	if wrong[0] == '0' {
		wrong[0] = '1'
	} else {
		wrong[0] = '0'
	}
	_, err = f.svc.VerifyAuthorizedOTP(ctx, community.ID, invitee.ID, string(wrong))
	require.ErrorIs(t, err, domain.ErrInvalidOTP)
	require.Equal(t, 0, f.reload(t, community.ID).ApprovalCount)
}

func TestInviteAlreadyAuthorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	invitee := f.createUser(t, "Noa Reporter", "noa@example.org")
	community := f.createCommunity(t, creator.ID, domain.TypeMulti, "Harbor City Desk")

	invited, err := f.svc.InviteAuthorizedPerson(ctx, creator.ID, community.ID, invitee.Email)
	require.NoError(t, err)
	_, err = f.svc.VerifyAuthorizedOTP(ctx, community.ID, invitee.ID, invited.Invite.OTP)
	require.NoError(t, err)

	_, err = f.svc.InviteAuthorizedPerson(ctx, creator.ID, community.ID, invitee.Email)
	require.ErrorIs(t, err, domain.ErrAlreadyAuthorized)
}

func TestDomainEmailChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	outsider := f.createUser(t, "Sam Stranger", "sam@example.org")
	community := f.createCommunity(t, creator.ID, domain.TypeSingle, "Solo Correspondent")

	require.ErrorIs(t, f.svc.SendEmailVerification(ctx, outsider.ID, community.ID), domain.ErrForbidden)

	require.NoError(t, f.svc.SendEmailVerification(ctx, creator.ID, community.ID))

	stored := f.reload(t, community.ID)
	require.NotNil(t, stored.EmailOTP)
	code := *stored.EmailOTP

	_, err := f.svc.VerifyDomainEmail(ctx, outsider.ID, community.ID, code)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.VerifyDomainEmail(ctx, creator.ID, community.ID, "999999x")
	require.ErrorIs(t, err, domain.ErrInvalidOTP)

	result, err := f.svc.VerifyDomainEmail(ctx, creator.ID, community.ID, code)
	require.NoError(t, err)
	require.True(t, result.Activated)
	require.Equal(t, domain.StatusActive, result.Community.Status)
	require.True(t, result.Community.IsEmailVerified)
	require.Nil(t, result.Community.EmailOTP)

	// The code is single-use.
	_, err = f.svc.VerifyDomainEmail(ctx, creator.ID, community.ID, code)
	require.ErrorIs(t, err, domain.ErrInvalidOTP)
}

func TestDomainEmailExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	community := f.createCommunity(t, creator.ID, domain.TypeSingle, "Solo Correspondent")

	require.NoError(t, f.svc.SendEmailVerification(ctx, creator.ID, community.ID))
	code := *f.reload(t, community.ID).EmailOTP

	f.clock.Advance(11 * time.Minute)

	_, err := f.svc.VerifyDomainEmail(ctx, creator.ID, community.ID, code)
	require.ErrorIs(t, err, domain.ErrOTPExpired)
	require.Equal(t, domain.StatusPending, f.reload(t, community.ID).Status)
}

func TestDomainEmailWrongChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")
	community := f.createCommunity(t, creator.ID, domain.TypeMulti, "Harbor City Desk")

	require.ErrorIs(t, f.svc.SendEmailVerification(ctx, creator.ID, community.ID), domain.ErrWrongChannel)

	_, err := f.svc.VerifyDomainEmail(ctx, creator.ID, community.ID, "123456")
	require.ErrorIs(t, err, domain.ErrWrongChannel)
}

func TestSendEmailVerificationRequiresAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.createUser(t, "Ada Editor", "ada@example.org")

	community, err := f.svc.Create(ctx, domain.CreateCommunityRequest{
		Name:      "Solo Without Address",
		Type:      domain.TypeSingle,
		CreatorID: creator.ID,
	})
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.SendEmailVerification(ctx, creator.ID, community.ID), domain.ErrEmailNotSet)
}
