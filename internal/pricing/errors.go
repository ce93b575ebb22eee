package pricing

import (
	"errors"
	"fmt"
)

var ErrRetriesExhausted = errors.New("pricing update retries exhausted")

// MaterialError ties a pricing failure to the material it happened for.
type MaterialError struct {
	MaterialID string
	Err        error
}

func (e *MaterialError) Error() string {
	return fmt.Sprintf("pricing material %s: %v", e.MaterialID, e.Err)
}

func (e *MaterialError) Unwrap() error {
	return e.Err
}
