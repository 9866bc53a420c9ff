package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeService_SetupNode(t *testing.T) {
	connector := newFakeConnector()
	log, logs := newObservedLogger()
	nodes := NewNodeService(connector, log)

	ok := nodes.SetupNode(context.Background(), "10.0.0.2")

	require.True(t, ok)
	session := connector.Session("10.0.0.2")
	require.NotNil(t, session)
	assert.Equal(t, ProvisioningCommands, session.Ran())
	assert.True(t, session.Closed())
	assert.Equal(t, 1, logs.FilterMessage("Setting up node: 10.0.0.2").Len())
	assert.Equal(t, 1, logs.FilterMessage("[10.0.0.2] done").Len())
}

func TestNodeService_FirstFailureAbortsRemainingCommands(t *testing.T) {
	for i, failing := range ProvisioningCommands {
		t.Run(failing, func(t *testing.T) {
			connector := newFakeConnector()
			connector.failCommand["10.0.0.2"] = func(cmd string) bool { return cmd == failing }
			log, logs := newObservedLogger()

			ok := NewNodeService(connector, log).SetupNode(context.Background(), "10.0.0.2")

			assert.False(t, ok)
			session := connector.Session("10.0.0.2")
			assert.Equal(t, ProvisioningCommands[:i+1], session.Ran())
			assert.True(t, session.Closed(), "connection is released on failure")
			assert.Equal(t, 1, logs.FilterMessageSnippet("Failed to execute '"+failing+"' on 10.0.0.2").Len())
			assert.Equal(t, 1, logs.FilterMessage("[10.0.0.2] failed").Len())
		})
	}
}

func TestNodeService_CouldNotConnect(t *testing.T) {
	connector := newFakeConnector()
	connector.refuse["10.0.0.9"] = true
	log, logs := newObservedLogger()

	ok := NewNodeService(connector, log).SetupNode(context.Background(), "10.0.0.9")

	assert.False(t, ok)
	assert.Nil(t, connector.Session("10.0.0.9"))
	assert.Equal(t, 1, logs.FilterMessageSnippet("Could not connect to 10.0.0.9").Len())
	assert.Equal(t, 0, logs.FilterMessageSnippet("Successfully executed").Len())
}
