package domain

import (
	"github.com/cockroachdb/errors"
)

// Sentinels classify acquisition failures; match them with errors.Is.
var (
	// ErrAddressNotFound means the upstream lookup returned no candidate. Not retryable.
	ErrAddressNotFound = errors.New("address not found")

	// ErrUpstreamUnavailable covers transport failures and non-success statuses.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrDateParse means a selected token could not be turned into a date.
	// Usually an upstream format change; an operator should look at it.
	ErrDateParse = errors.New("date parse")

	ErrUnknownStrategy = errors.New("unknown acquisition strategy")
	ErrRunConsumed     = errors.New("acquisition run already consumed")
)

// UpstreamUnavailable marks cause as ErrUpstreamUnavailable, keeping its message.
func UpstreamUnavailable(cause error, format string, args ...interface{}) error {
	if cause == nil {
		return errors.Mark(errors.Newf(format, args...), ErrUpstreamUnavailable)
	}
	return errors.Mark(errors.Wrapf(cause, format, args...), ErrUpstreamUnavailable)
}

// AddressNotFound reports that no upstream candidate exists for addr.
func AddressNotFound(addr Address) error {
	return errors.WithHint(
		errors.Wrapf(ErrAddressNotFound, "lookup %s", addr),
		"check the configured postal code and house number",
	)
}

// DateParse reports an unparseable token; the token is attached as detail.
func DateParse(token, reason string) error {
	err := errors.Wrapf(ErrDateParse, "%s", reason)
	return errors.WithDetailf(err, "token: %q", token)
}

// Retryable reports whether the caller may retry the failed run.
func Retryable(err error) bool {
	return err != nil && errors.Is(err, ErrUpstreamUnavailable)
}
