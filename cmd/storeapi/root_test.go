package main

import (
	"context"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"serve", "create-admin", "ensure-indexes"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	assert.True(t, cmd.SilenceUsage)
	assert.NotNil(t, cmd.RunE, "root command serves by default")
}

func TestCreateAdminCmd_Flags(t *testing.T) {
	cmd := NewCreateAdminCmd()

	for _, name := range []string{"email", "password", "name"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %q", name)
	}
	email := cmd.Flags().Lookup("email")
	assert.Equal(t, []string{"true"}, email.Annotations["cobra_annotation_bash_completion_one_required_flag"])
}

func TestCreateAdminCmd_RequiresEmail(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"create-admin", "--password", "Secret123"})
	cmd.SilenceErrors = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}

func TestSetup_InvalidConfig(t *testing.T) {
	t.Setenv("API_PREFIX", "api")

	_, _, err := setup(context.Background())
	require.Error(t, err)

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "CONFIG_INVALID", oopsErr.Code())
}
