package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/todoclient/internal/domain"
)

func TestCredentialsValidate(t *testing.T) {
	tests := []struct {
		name    string
		creds   domain.Credentials
		wantErr bool
	}{
		{"valid", domain.Credentials{Email: "a@b.com", Password: "Secr3t!"}, false},
		{"missing email", domain.Credentials{Password: "Secr3t!"}, true},
		{"malformed email", domain.Credentials{Email: "not-an-email", Password: "Secr3t!"}, true},
		{"display-name form rejected", domain.Credentials{Email: "Bob <a@b.com>", Password: "Secr3t!"}, true},
		{"missing password", domain.Credentials{Email: "a@b.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRegistrationValidate(t *testing.T) {
	valid := domain.Registration{Username: "ali", Email: "a@b.com", Password: "Secr3t!"}
	require.NoError(t, valid.Validate())

	short := valid
	short.Password = "abc"
	assert.ErrorIs(t, short.Validate(), domain.ErrInvalidInput)

	blank := valid
	blank.Username = "   "
	assert.ErrorIs(t, blank.Validate(), domain.ErrInvalidInput)

	badEmail := valid
	badEmail.Email = "a@"
	assert.ErrorIs(t, badEmail.Validate(), domain.ErrInvalidInput)
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "ali", (&domain.User{Username: "ali", Email: "a@b.com"}).DisplayName())
	assert.Equal(t, "a@b.com", (&domain.User{Email: "a@b.com"}).DisplayName())

	var nilUser *domain.User
	assert.Empty(t, nilUser.DisplayName())
}

func TestAuthResultDecode(t *testing.T) {
	body := `{"accessToken":"h.p1.s","refreshToken":"r1","tokenType":"Bearer","expiresIn":900,
		"user":{"id":1,"email":"a@b.com","username":"ali","authProvider":"LOCAL"}}`

	var res domain.AuthResult
	require.NoError(t, json.Unmarshal([]byte(body), &res))

	assert.Equal(t, "h.p1.s", res.AccessToken)
	assert.Equal(t, "r1", res.RefreshToken)
	assert.Equal(t, int64(900), res.ExpiresIn)
	require.NotNil(t, res.User)
	assert.Equal(t, int64(1), res.User.ID)
	assert.Equal(t, "a@b.com", res.User.Email)
}
