package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	// DefaultActivationApprovals is the number of confirmed authorization
	// approvals required before a Multi community becomes Active.
	DefaultActivationApprovals = 2

	// DefaultOTPTTL is the validity window of an invitation or
	// email-verification code.
	DefaultOTPTTL = 10 * time.Minute
)

// CommunityPolicy holds platform-wide lifecycle knobs. The defaults match
// the product rules; overrides apply globally, never per community.
type CommunityPolicy struct {
	ActivationApprovals int           `mapstructure:"activationApprovals"`
	OTPTTL              time.Duration `mapstructure:"otpTTL"`
}

func DefaultCommunityPolicy() CommunityPolicy {
	return CommunityPolicy{
		ActivationApprovals: DefaultActivationApprovals,
		OTPTTL:              DefaultOTPTTL,
	}
}

// PolicyHolder exposes the current policy and hot-reloads it from disk.
type PolicyHolder struct {
	current atomic.Value // holds CommunityPolicy
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/commune/config")
	v.AddConfigPath("/etc/commune")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COMMUNE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCommunityPolicy()
	v.SetDefault("community.activationApprovals", defaults.ActivationApprovals)
	v.SetDefault("community.otpTTL", defaults.OTPTTL)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy CommunityPolicy
	if err := v.UnmarshalKey("community", &policy); err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CommunityPolicy
		if err := v.UnmarshalKey("community", &updated); err != nil {
			log.Printf("[policy] reload failed: %v", err)
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Printf("[policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPolicyHolder returns a holder pinned to the given policy.
func NewStaticPolicyHolder(policy CommunityPolicy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *PolicyHolder) Get() CommunityPolicy {
	return h.current.Load().(CommunityPolicy)
}

func validatePolicy(policy CommunityPolicy) error {
	if policy.ActivationApprovals < 1 {
		return errors.New("community.activationApprovals must be at least 1")
	}
	if policy.OTPTTL <= 0 {
		return errors.New("community.otpTTL must be positive")
	}
	return nil
}
