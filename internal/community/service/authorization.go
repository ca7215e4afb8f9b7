package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/pressroomhq/commune/internal/community/domain"
	"github.com/pressroomhq/commune/internal/otp"
	"github.com/pressroomhq/commune/internal/providers/email"
	userdomain "github.com/pressroomhq/commune/internal/user/domain"
)

const (
	otpChannelInvite      = "authorization_invite"
	otpChannelDomainEmail = "domain_email"
)

// InviteAuthorizedPerson issues a confirmation code to the invitee.
// Inviting an address that already holds a pending invitation refreshes
// the code and expiry in place rather than stacking a second row.
func (s *Service) InviteAuthorizedPerson(ctx context.Context, actorID, communityID snowflake.ID, inviteeEmail string) (*domain.InviteResult, error) {
	community, err := s.repo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if community.CreatorID != actorID {
		return nil, domain.ErrForbidden
	}

	inviteeEmail = strings.ToLower(strings.TrimSpace(inviteeEmail))
	if inviteeEmail == "" || !strings.Contains(inviteeEmail, "@") {
		return nil, domain.ErrInvalidEmail
	}

	// Bind the invite to a directory user when the address resolves;
	// otherwise leave it unbound and claimable by code.
	var inviteeID snowflake.ID
	user, err := s.users.FindByEmail(ctx, inviteeEmail)
	switch {
	case err == nil:
		inviteeID = user.ID
	case errors.Is(err, userdomain.ErrNotFound):
	default:
		return nil, err
	}

	if inviteeID != 0 {
		authorized, err := s.repo.IsAuthorized(ctx, communityID, inviteeID)
		if err != nil {
			return nil, err
		}
		if authorized {
			return nil, domain.ErrAlreadyAuthorized
		}
	}

	code, err := otp.Generate()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	expires := now.Add(s.policy.Get().OTPTTL)

	result := &domain.InviteResult{}
	err = s.withCommunityLock(ctx, communityID, func(ctx context.Context) error {
		refreshed, err := s.repo.RefreshInvite(ctx, communityID, inviteeID, inviteeEmail, code, expires, now)
		if err != nil {
			return err
		}
		if refreshed != nil {
			result.Invite = refreshed
			result.Resent = true
			return nil
		}

		invite := &domain.Invite{
			ID:          s.genID.Generate(),
			CommunityID: communityID,
			UserID:      inviteeID,
			Email:       inviteeEmail,
			OTP:         code,
			OTPExpires:  expires,
			InvitedAt:   now,
		}
		if err := s.repo.CreateInvite(ctx, invite); err != nil {
			return err
		}
		result.Invite = invite
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.InviteIssued()
	s.sendOTP(ctx, inviteeEmail, "authorization of "+community.Name, code)
	return result, nil
}

// VerifyAuthorizedOTP confirms an invitation code presented by userID.
// A code matches when the invite is bound to that user or bound to
// nobody; the confirming call adds the user to the authorized set,
// bumps the approval count, and activates a Pending community once the
// configured threshold is reached.
func (s *Service) VerifyAuthorizedOTP(ctx context.Context, communityID, userID snowflake.ID, code string) (*domain.VerifyResult, error) {
	if _, err := s.repo.GetByID(ctx, communityID); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" || userID == 0 {
		s.metrics.OTPVerification(otpChannelInvite, "invalid")
		return nil, domain.ErrInvalidOTP
	}

	var result *domain.VerifyResult
	err := s.withCommunityLock(ctx, communityID, func(ctx context.Context) error {
		invite, err := s.repo.FindInviteByOTP(ctx, communityID, userID, code)
		if err != nil {
			return err
		}
		if invite == nil {
			s.metrics.OTPVerification(otpChannelInvite, "invalid")
			return domain.ErrInvalidOTP
		}
		if s.clock.Now().After(invite.OTPExpires) {
			s.metrics.OTPVerification(otpChannelInvite, "expired")
			return domain.ErrOTPExpired
		}

		threshold := s.policy.Get().ActivationApprovals
		community, activated, err := s.repo.ConfirmInvite(ctx, invite, &domain.AuthorizedPerson{
			ID:          s.genID.Generate(),
			CommunityID: communityID,
			UserID:      userID,
			CreatedAt:   s.clock.Now(),
		}, threshold)
		if err != nil {
			return err
		}

		result = &domain.VerifyResult{
			Community:     community,
			ApprovalCount: community.ApprovalCount,
			Activated:     activated,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OTPVerification(otpChannelInvite, "confirmed")
	if result.Activated {
		s.metrics.CommunityActivated()
		s.log.Info("community activated",
			zap.String("community_id", communityID.String()),
			zap.Int("approval_count", result.ApprovalCount),
		)
	}
	return result, nil
}

// SendEmailVerification starts the single-creator activation channel.
func (s *Service) SendEmailVerification(ctx context.Context, actorID, communityID snowflake.ID) error {
	community, err := s.repo.GetByID(ctx, communityID)
	if err != nil {
		return err
	}
	if community.CreatorID != actorID {
		return domain.ErrForbidden
	}
	if community.Type != domain.TypeSingle {
		return domain.ErrWrongChannel
	}
	if strings.TrimSpace(community.DomainEmail) == "" {
		return domain.ErrEmailNotSet
	}

	code, err := otp.Generate()
	if err != nil {
		return err
	}
	expires := s.clock.Now().Add(s.policy.Get().OTPTTL)

	if err := s.repo.SetEmailOTP(ctx, communityID, code, expires); err != nil {
		return err
	}

	s.sendOTP(ctx, community.DomainEmail, "verification of "+community.Name, code)
	return nil
}

// VerifyDomainEmail confirms the code sent to the community's domain
// address. Success clears the stored code, marks the email verified,
// and activates the community.
func (s *Service) VerifyDomainEmail(ctx context.Context, actorID, communityID snowflake.ID, code string) (*domain.VerifyResult, error) {
	community, err := s.repo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if community.CreatorID != actorID {
		return nil, domain.ErrForbidden
	}
	if community.Type != domain.TypeSingle {
		return nil, domain.ErrWrongChannel
	}

	code = strings.TrimSpace(code)
	if community.EmailOTP == nil || code == "" || *community.EmailOTP != code {
		s.metrics.OTPVerification(otpChannelDomainEmail, "invalid")
		return nil, domain.ErrInvalidOTP
	}
	if community.EmailOTPExpires == nil || s.clock.Now().After(*community.EmailOTPExpires) {
		s.metrics.OTPVerification(otpChannelDomainEmail, "expired")
		return nil, domain.ErrOTPExpired
	}

	updated, activated, err := s.repo.ConfirmEmailOTP(ctx, communityID)
	if err != nil {
		return nil, err
	}

	s.metrics.OTPVerification(otpChannelDomainEmail, "confirmed")
	if activated {
		s.metrics.CommunityActivated()
		s.log.Info("community activated",
			zap.String("community_id", communityID.String()),
			zap.String("channel", otpChannelDomainEmail),
		)
	}
	return &domain.VerifyResult{
		Community:     updated,
		ApprovalCount: updated.ApprovalCount,
		Activated:     activated,
	}, nil
}

// sendOTP dispatches the code by mail. Delivery failures are logged
// and swallowed so a flaky mail relay cannot block the lifecycle.
func (s *Service) sendOTP(ctx context.Context, to, purpose, code string) {
	body := email.OTPBody(purpose, code, s.policy.Get().OTPTTL)
	if err := s.mail.Send(ctx, []string{to}, "Your verification code", body); err != nil {
		s.log.Warn("failed to send verification code",
			zap.String("purpose", purpose),
			zap.Error(err),
		)
	}
}
