package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	"github.com/lk2023060901/file-portal-backend/internal/download/downloadtest"
	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUseCase(t *testing.T) (*biz.DownloadUseCase, *downloadtest.ObjectStore, *downloadtest.AdminLogRepo) {
	t.Helper()
	codes := downloadtest.NewCodeRepo()
	objects := downloadtest.NewObjectStore()
	admins := downloadtest.NewAdminLogRepo()
	uc := biz.NewDownloadUseCase(codes, downloadtest.NewLogRepo(codes), admins, objects, nil,
		biz.DefaultConfig(), logger.NewNop())
	return uc, objects, admins
}

func TestCLICaller(t *testing.T) {
	policy := identity.NewAdminPolicy([]string{"ops@example.com"}, nil)

	c := cliCaller(policy, "ops@example.com")
	assert.True(t, c.IsAdmin)
	assert.Equal(t, "cli", c.Location.IP)

	assert.False(t, cliCaller(policy, "someone@example.com").IsAdmin)
}

func TestRunIssue(t *testing.T) {
	uc, objects, admins := newUseCase(t)
	objects.Add("reports/q1.pdf", make([]byte, 2048), time.Now())
	caller := cliCaller(identity.NewAdminPolicy([]string{"ops@example.com"}, nil), "ops@example.com")

	var out bytes.Buffer
	err := runIssue(context.Background(), &out, uc, caller, biz.IssueRequest{FileKey: "reports/q1.pdf"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "file:      q1.pdf (2048 bytes)")
	assert.Contains(t, out.String(), "recipient: anyone")

	entries := admins.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "cli", entries[0].IPAddress)
	assert.Equal(t, biz.ActionGenerateCode, entries[0].Action)

	err = runIssue(context.Background(), &out, uc, cliCaller(nil, "ops@example.com"), biz.IssueRequest{FileKey: "reports/q1.pdf"})
	assert.ErrorIs(t, err, biz.ErrAdminRequired)
}

func TestRunFiles(t *testing.T) {
	uc, objects, _ := newUseCase(t)
	objects.Add("old.bin", make([]byte, 10), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	objects.Add("new.bin", make([]byte, 3<<20), time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	caller := cliCaller(identity.NewAdminPolicy([]string{"ops@example.com"}, nil), "ops@example.com")

	var out bytes.Buffer
	require.NoError(t, runFiles(context.Background(), &out, uc, caller))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "KEY"))
	assert.True(t, strings.HasPrefix(lines[1], "new.bin"))
	assert.Contains(t, lines[1], "2025-05-01T00:00:00Z")
	assert.True(t, strings.HasPrefix(lines[2], "old.bin"))
}

func TestRootCmd(t *testing.T) {
	root := RootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"migrate", "issue", "files"}, names)

	issue, _, err := root.Find([]string{"issue"})
	require.NoError(t, err)
	assert.NotNil(t, issue.Flags().Lookup("file-key"))
	assert.NotNil(t, issue.Flags().Lookup("as"))
}
