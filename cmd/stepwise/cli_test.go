package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/stepwise/internal/domain"
	"github.com/ashureev/stepwise/internal/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GENERATOR", "mock")
	t.Setenv("EXECUTOR_MODE", "deterministic")
	t.Setenv("DB_PATH", t.TempDir()+"/stepwise.db")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSolveCommandFromArgs(t *testing.T) {
	out, err := runCLI(t, "", "solve", "A train leaves at 14:30 and arrives at 18:05.", "How long is the journey?")
	require.NoError(t, err)

	var res domain.AgentResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotNil(t, res.Answer)
	assert.Equal(t, "3 hours 35 minutes", *res.Answer)
	assert.Equal(t, generator.MockPlan, res.Metadata.Plan)
}

func TestSolveCommandFromStdin(t *testing.T) {
	out, err := runCLI(t, "What is the meaning of life?\n", "solve", "--no-cache", "--max-retries", "0")
	require.NoError(t, err)

	var res domain.AgentResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Nil(t, res.Answer)
	assert.Len(t, res.Metadata.Checks, 1)
	assert.Equal(t, 0, res.Metadata.Retries)
}

func TestSolveCommandRejectsBadInput(t *testing.T) {
	_, err := runCLI(t, "   ", "solve")
	assert.ErrorContains(t, err, "question is required")

	_, err = runCLI(t, "", "solve", "--generator", "openai", "1 and 2")
	assert.ErrorContains(t, err, "GENERATOR must be")
}

func TestSolveFlagsOverrideInvalidEnvironment(t *testing.T) {
	t.Setenv("GENERATOR", "gemini")
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := solveConfig(&solveOptions{maxRetries: -1})
	assert.ErrorContains(t, err, "GOOGLE_API_KEY")

	cfg, err := solveConfig(&solveOptions{maxRetries: -1, generator: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.Generator.Kind)
}

func TestServeGenerator(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveGenerator(ctx, lis, generator.NewMock(), nil) }()

	cfg := generator.DefaultGrpcClientConfig()
	cfg.Address = lis.Addr().String()
	client, err := generator.NewGrpcClient(cfg, nil)
	require.NoError(t, err)
	defer client.Close()

	plan, err := client.Generate(context.Background(), "Question: x\nPlan:")
	require.NoError(t, err)
	assert.Equal(t, generator.MockPlan, plan)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("generator service did not stop")
	}
}
