package svcrelay

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpError(t *testing.T) {
	inner := &ToolError{Tool: "systemctl", Stderr: "Unit x.service not found."}
	err := &OpError{Op: OpStart, Unit: "x.service", Err: inner}

	require.Equal(t, "start x.service: Unit x.service not found.", err.Error())

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.Equal(t, "Unit x.service not found.", toolErr.Stderr)

	noUnit := &OpError{Op: OpReload, Err: errors.New("boom")}
	require.Equal(t, "daemon-reload: boom", noUnit.Error())
}

func TestToolErrorWithoutStderr(t *testing.T) {
	err := &ToolError{Tool: "systemctl", Err: errors.New("exit status 1")}
	require.Equal(t, "systemctl: exit status 1", err.Error())
}

func TestMultiError(t *testing.T) {
	merr := &MultiError{}
	require.NoError(t, merr.Err())

	merr.Add(nil)
	require.NoError(t, merr.Err())

	merr.Add(fmt.Errorf("read: %w", fs.ErrNotExist))
	require.Equal(t, "read: file does not exist", merr.Error())

	merr.Add(&OpError{Op: OpStop, Unit: "b.service", Err: ErrSpawn})
	require.Equal(t, "2 errors occurred", merr.Error())

	err := merr.Err()
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.ErrorIs(t, err, ErrSpawn)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	require.Equal(t, "b.service", opErr.Unit)
}
