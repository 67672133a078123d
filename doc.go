// Package svcrelay lets a desktop client manage one user-level systemd
// service and watch its journal without owning the service's process or
// log files.
//
// The ClientSystemd type issues status and control operations through
// systemctl. Control verbs are queued with --no-block, so they return as
// soon as systemd accepts the job:
//
//	ctl := svcrelay.NewClientSystemd()
//	if err := ctl.Start(ctx, "peerdrived"); err != nil {
//	    log.Fatal(err)
//	}
//	status, err := ctl.Status(ctx, "peerdrived.service")
//
// Unit names may be given bare or with the .service suffix; UnitName
// normalizes them everywhere.
//
// # Log streams
//
// A Supervisor owns at most one journalctl follower at a time and relays
// its output to a Sink in order. Starting a new stream kills and reaps the
// previous follower before the new one is spawned:
//
//	lines := make(chan svcrelay.LogLine, 256)
//	sup := svcrelay.NewSupervisor(svcrelay.ChanSink(lines))
//	defer sup.Close()
//	err := sup.Start(ctx, "peerdrived")
//
// # Startup flags
//
// FlagsCodec reads and rewrites the argument tail of a unit's ExecStart
// directive, leaving every other byte of the unit file untouched. Writes
// go through an atomic rename. The codec edits unit files only; it never
// creates one.
//
// # Manager for Bulk Operations
//
// Manager fans a controller operation out over several units with bounded
// concurrency and collects per-unit failures into a MultiError.
package svcrelay
