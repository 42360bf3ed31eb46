package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserHashesPassword(t *testing.T) {
	u, err := CreateUser("Dana Levi", "dana@example.co.il", "s3cret-passw0rd")
	require.NoError(t, err)

	assert.Equal(t, RoleOwner, u.Role)
	assert.Equal(t, UserStatusActive, u.Status)
	assert.NotEqual(t, "s3cret-passw0rd", u.Password)
	assert.True(t, CheckPasswordHash("s3cret-passw0rd", u.Password))
	assert.False(t, CheckPasswordHash("wrong", u.Password))
}

func TestCreateUserRejectsInvalidInput(t *testing.T) {
	_, err := CreateUser("Dana Levi", "not-an-email", "s3cret-passw0rd")
	assert.Error(t, err)

	_, err = CreateUser("Dana Levi", "dana@example.co.il", "short")
	assert.Error(t, err)
}

func TestIsStaff(t *testing.T) {
	assert.False(t, (&User{Role: RoleOwner}).IsStaff())
	assert.False(t, (&User{Role: RoleMember}).IsStaff())
	assert.True(t, (&User{Role: RoleDPO}).IsStaff())
	assert.True(t, (&User{Role: RoleAdmin}).IsStaff())
}
