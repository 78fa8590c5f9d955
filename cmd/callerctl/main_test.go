package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patient-caller-backend/internal/api"
	"patient-caller-backend/internal/queue"
	"patient-caller-backend/internal/store"
	"patient-caller-backend/internal/testsupport"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewGormStore(testsupport.NewSQLiteDB(t))
	h := api.NewHandler(queue.NewService(st, queue.WithLocation(time.UTC)), st, nil, zerolog.Nop())
	srv := httptest.NewServer(api.NewRouter(h, api.Options{Logger: zerolog.Nop()}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func runCLI(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", server, "--timezone", "UTC"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_QueueLifecycle(t *testing.T) {
	server := newTestServer(t)

	out, err := runCLI(t, server, "add", "--cinro", "111", "--nombre", "ANA", "--apellido", "LOPEZ")
	require.NoError(t, err)
	assert.Equal(t, "Paciente ANA LOPEZ agregado con id 1\n", out)

	out, err = runCLI(t, server, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ANA")
	assert.Contains(t, out, "LOPEZ")

	out, err = runCLI(t, server, "call", "1")
	require.NoError(t, err)
	assert.Equal(t, "Paciente ANA LOPEZ, favor pasar a preconsulta.\n", out)

	out, err = runCLI(t, server, "called")
	require.NoError(t, err)
	assert.Equal(t, "1\tANA LOPEZ\tCI 111\n", out)

	out, err = runCLI(t, server, "display", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "ANA LOPEZ")
	assert.NotContains(t, out, clearScreen)

	out, err = runCLI(t, server, "attend", "1")
	require.NoError(t, err)
	assert.Equal(t, "Paciente ANA LOPEZ atendido y registrado.\n", out)

	out, err = runCLI(t, server, "history", "--today")
	require.NoError(t, err)
	assert.Contains(t, out, "ATENDIDO")

	out, err = runCLI(t, server, "list")
	require.NoError(t, err)
	assert.Equal(t, "No hay pacientes en espera\n", out)

	out, err = runCLI(t, server, "called")
	require.NoError(t, err)
	assert.Equal(t, "Ningún paciente llamado\n", out)
}

func TestCLI_Errors(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "add missing fields", args: []string{"add", "--cinro", "1"}, want: "missing required fields: nombre, apellido"},
		{name: "call unknown", args: []string{"call", "5"}, want: "patient 5 not found"},
		{name: "attend bad id", args: []string{"attend", "abc"}, want: `invalid patient id "abc"`},
		{name: "history half range", args: []string{"history", "--from", "2025-03-10"}, want: "--from and --to must be given together"},
		{name: "history inverted", args: []string{"history", "--from", "2025-03-11", "--to", "2025-03-10"}, want: "--from is after --to"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(t, server, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable(waitingColumns, [][]string{{"1", "4512", "ANA", "LOPEZ"}, {"2", "777"}})
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Contains(t, strings.ToUpper(out), "APELLIDO")
	assert.Contains(t, out, "LOPEZ")
	assert.Contains(t, strings.ToUpper(out), "TOTAL: 2")
	assert.Equal(t, "", renderTable(nil, nil))
}
