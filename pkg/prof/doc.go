// Package prof wraps runtime/pprof for the command line tools.
//
//	session, err := prof.Start("cpu.prof", "heap.prof")
//	if err != nil {
//	    return err
//	}
//	defer session.Stop()
//
// Profiles are read with go tool pprof.
package prof
