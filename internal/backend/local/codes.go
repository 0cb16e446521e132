package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const codeKeyPrefix = "code:"

// Purposes of an emailed one-time code.
const (
	purposeSignup   = "signup"
	purposeRecovery = "recovery"
)

// codeGrant is what a one-time code stands for.
type codeGrant struct {
	UserID  string `json:"user_id"`
	Purpose string `json:"purpose"`
}

// codes stores single-use codes sent in confirmation and recovery links.
type codes struct {
	ttl time.Duration
	rdb redis.Cmdable
}

// issue stores a new code for the grant and returns it.
func (c *codes) issue(ctx context.Context, grant codeGrant) (string, error) {
	payload, err := json.Marshal(grant)
	if err != nil {
		return "", fmt.Errorf("encoding code grant: %w", err)
	}

	code := uuid.NewString()
	if err := c.rdb.Set(ctx, codeKeyPrefix+code, payload, c.ttl).Err(); err != nil {
		return "", fmt.Errorf("storing code: %w", err)
	}
	return code, nil
}

// consume redeems a code. A code works once; unknown, used or expired
// codes yield errFlowStateNotFound.
func (c *codes) consume(ctx context.Context, code string) (*codeGrant, error) {
	payload, err := c.rdb.GetDel(ctx, codeKeyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errFlowStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consuming code: %w", err)
	}

	var grant codeGrant
	if err := json.Unmarshal(payload, &grant); err != nil {
		return nil, fmt.Errorf("decoding code grant: %w", err)
	}
	return &grant, nil
}
