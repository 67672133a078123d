package svcrelay

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientSystemdStatus(t *testing.T) {
	tests := []struct {
		name    string
		stdout  string
		stderr  string
		code    int
		want    ServiceStatus
		wantErr string
	}{
		{name: "active", stdout: "active\n", want: StatusActive},
		{name: "inactive exit 3", stdout: "inactive\n", code: 3, want: StatusInactive},
		{name: "failed exit 3", stdout: "failed\n", code: 3, want: StatusFailed},
		{name: "transitional token passes through", stdout: "  activating  \n", code: 3, want: StatusActivating},
		{name: "stdout wins over stderr", stdout: "inactive\n", stderr: "Warning: something\n", code: 3, want: StatusInactive},
		{
			name:   "unit could not be found",
			stderr: "Unit nosuch.service could not be found.\n",
			code:   4,
			want:   StatusNotFound,
		},
		{name: "not-found token on stderr", stderr: "not-found\n", code: 4, want: StatusNotFound},
		{
			name:    "other stderr is an error",
			stderr:  "Failed to connect to bus: No medium found\n",
			code:    1,
			wantErr: "is-active peerdrived.service: Failed to connect to bus: No medium found",
		},
		{name: "no output at all", want: StatusUnknown},
		{name: "no output nonzero exit", code: 1, want: StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := newFakeSystemctl(t, tt.stdout, tt.stderr, tt.code)
			client := NewClientSystemd().WithSystemctlPath(ft.Path)

			status, err := client.Status(context.Background(), "peerdrived")
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)

				var toolErr *ToolError
				require.ErrorAs(t, err, &toolErr)
				var opErr *OpError
				require.ErrorAs(t, err, &opErr)
				require.Equal(t, OpStatus, opErr.Op)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, status)
		})
	}
}

func TestClientSystemdStatusInvocation(t *testing.T) {
	ft := newFakeSystemctl(t, "active\n", "", 0)
	client := NewClientSystemd().WithSystemctlPath(ft.Path)

	_, err := client.Status(context.Background(), "peerdrived.service")
	require.NoError(t, err)

	require.Equal(t, []string{"--user is-active peerdrived.service"}, ft.Invocations(t))
	require.Equal(t, []string{"0"}, ft.Colors(t))
}

func TestClientSystemdControl(t *testing.T) {
	tests := []struct {
		verb string
		call func(*ClientSystemd, context.Context, string) error
	}{
		{"start", (*ClientSystemd).Start},
		{"stop", (*ClientSystemd).Stop},
		{"restart", (*ClientSystemd).Restart},
	}

	for _, tt := range tests {
		t.Run(tt.verb, func(t *testing.T) {
			ft := newFakeSystemctl(t, "", "", 0)
			client := NewClientSystemd().WithSystemctlPath(ft.Path)

			require.NoError(t, tt.call(client, context.Background(), "peerdrived"))
			require.Equal(t,
				[]string{"--user --no-pager " + tt.verb + " --no-block peerdrived.service"},
				ft.Invocations(t))
			require.Equal(t, []string{"0"}, ft.Colors(t))
		})
	}
}

func TestClientSystemdControlFailure(t *testing.T) {
	const diag = "Failed to start peerdrived.service: Unit peerdrived.service not found."
	ft := newFakeSystemctl(t, "", "  "+diag+"\n", 5)
	client := NewClientSystemd().WithSystemctlPath(ft.Path)

	err := client.Start(context.Background(), "peerdrived")
	require.Error(t, err)
	require.Contains(t, err.Error(), diag)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	require.Equal(t, OpStart, opErr.Op)
	require.Equal(t, "peerdrived.service", opErr.Unit)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.Equal(t, diag, toolErr.Stderr)

	// No retry
	require.Len(t, ft.Invocations(t), 1)
}

func TestClientSystemdMissingBinary(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "systemctl")
	client := NewClientSystemd().WithSystemctlPath(missing)
	ctx := context.Background()

	_, err := client.Status(ctx, "peerdrived")
	require.ErrorIs(t, err, fs.ErrNotExist)

	err = client.Stop(ctx, "peerdrived")
	require.ErrorIs(t, err, fs.ErrNotExist)
	var toolErr *ToolError
	require.NotErrorAs(t, err, &toolErr, "launch failure must not look like a tool diagnostic")
}

func TestClientSystemdDaemonReload(t *testing.T) {
	ft := newFakeSystemctl(t, "", "", 0)
	client := NewClientSystemd().WithSystemctlPath(ft.Path)

	require.NoError(t, client.DaemonReload(context.Background()))
	require.Equal(t, []string{"--user --no-pager daemon-reload"}, ft.Invocations(t))
}

func TestClientSystemdWaitSettled(t *testing.T) {
	dir := t.TempDir()
	counter := filepath.Join(dir, "count")
	path := writeScript(t, dir, "systemctl", `
n=$(cat '`+counter+`' 2>/dev/null || echo 0)
n=$((n+1))
echo $n > '`+counter+`'
if [ $n -lt 3 ]; then
	echo activating
	exit 3
fi
echo active
`)
	client := NewClientSystemd().WithSystemctlPath(path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := client.WaitSettled(ctx, "peerdrived", 10*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, StatusActive, status)
}

func TestClientSystemdWaitSettledTimeout(t *testing.T) {
	ft := newFakeSystemctl(t, "deactivating\n", "", 3)
	client := NewClientSystemd().WithSystemctlPath(ft.Path)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_, err := client.WaitSettled(ctx, "peerdrived", 20*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
