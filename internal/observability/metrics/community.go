package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes lifecycle-level instruments for the community core.
type Metrics struct {
	activations   prometheus.Counter
	joinRequests  *prometheus.CounterVec
	otpOutcomes   *prometheus.CounterVec
	invitesIssued prometheus.Counter
}

func New() (*Metrics, error) {
	m := &Metrics{
		activations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commune_community_activations_total",
			Help: "Communities transitioned from Pending to Active.",
		}),
		joinRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "commune_join_requests_total",
			Help: "Join request outcomes.",
		}, []string{"outcome"}),
		otpOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "commune_otp_verifications_total",
			Help: "OTP verification outcomes.",
		}, []string{"channel", "outcome"}),
		invitesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commune_authorization_invites_total",
			Help: "Authorization invitations issued or resent.",
		}),
	}

	for _, c := range []prometheus.Collector{m.activations, m.joinRequests, m.otpOutcomes, m.invitesIssued} {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) CommunityActivated() {
	if m == nil {
		return
	}
	m.activations.Inc()
}

func (m *Metrics) JoinRequest(outcome string) {
	if m == nil {
		return
	}
	m.joinRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) OTPVerification(channel, outcome string) {
	if m == nil {
		return
	}
	m.otpOutcomes.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) InviteIssued() {
	if m == nil {
		return
	}
	m.invitesIssued.Inc()
}
