package submit

import (
	"strings"

	"github.com/google/uuid"
)

// CodeLength is the size of generated coupon codes.
const CodeLength = 8

// GenerateCode writes a random upper-case code into field through the
// regular SetValue path, so the field is marked dirty and re-validated like
// typed input.
func (c *Coordinator) GenerateCode(field string) (string, error) {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	code := raw[:CodeLength]
	if _, err := c.store.SetValue(field, code); err != nil {
		return "", err
	}
	c.Touch(field)
	return code, nil
}
