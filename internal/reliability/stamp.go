package reliability

import (
	"time"

	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/envelope"
)

// stampException replaces env's exception section with one describing
// cause
func stampException(env *envelope.Envelope, cause error, at time.Time, problemDestination, subscription string) error {
	reason, inserts := contracts.ReasonOf(cause)

	if err := env.ClearException(); err != nil {
		return err
	}
	if err := env.SetExceptionReason(reason); err != nil {
		return err
	}
	if len(inserts) > 0 {
		if err := env.SetExceptionInserts(inserts); err != nil {
			return err
		}
	}
	if err := env.SetExceptionTimestamp(at.UnixMilli()); err != nil {
		return err
	}
	if problemDestination != "" {
		if err := env.SetExceptionProblemDestination(problemDestination); err != nil {
			return err
		}
	}
	if subscription != "" {
		if err := env.SetExceptionProblemSubscription(subscription); err != nil {
			return err
		}
	}
	return nil
}
