package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{BcryptCost: 4}, // low cost keeps tests fast
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	pm := NewPasswordManager(testConfig())

	hash, err := pm.HashPassword("Str0ng&Secure!")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ng&Secure!", hash)

	assert.NoError(t, pm.VerifyPassword("Str0ng&Secure!", hash))
	assert.Error(t, pm.VerifyPassword("wrong-password", hash))
}

func TestValidatePasswordRejectsWeakPasswords(t *testing.T) {
	pm := NewPasswordManager(testConfig())

	cases := map[string]string{
		"too short":           "S7o&r",
		"no uppercase":        "weak&pass9",
		"no lowercase":        "WEAK&PASS9",
		"no number":           "Weak&Password",
		"no special char":     "WeakPassword9",
		"sequential letters":  "Wxyz&Pass9",
		"sequential numbers":  "W&pass45678",
		"repeating chars":     "Waaa&Pass9",
		"common password":     "Password9&",
	}

	for name, password := range cases {
		assert.Error(t, pm.ValidatePassword(password), name)
	}
}

func TestValidatePasswordAcceptsStrongPassword(t *testing.T) {
	pm := NewPasswordManager(testConfig())
	assert.NoError(t, pm.ValidatePassword("Str0ng&Secure!"))
}

func TestHashPasswordRejectsInvalid(t *testing.T) {
	pm := NewPasswordManager(testConfig())
	_, err := pm.HashPassword("short")
	assert.Error(t, err)
}
