package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"refersync/pkg/logger"
	"refersync/pkg/state"
	"refersync/pkg/store"
)

// inspect dumps the contents of a refersync database for debugging. It
// opens the store read path directly; do not point it at the DB of a
// running server.
func main() {
	var (
		dbPath   = flag.String("db", "", "refersync DB path (required)")
		thread   = flag.String("thread", "", "dump one conversation key instead of all referrals")
		asJSON   = flag.Bool("json", false, "emit raw JSON instead of a summary")
		referral = flag.String("referral", "", "dump one referral by id")
	)
	flag.Parse()
	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "--db required")
		os.Exit(2)
	}
	logger.Init()

	st, err := store.Open(state.StorePath(*dbPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	switch {
	case *thread != "":
		msgs, err := st.Thread(*thread)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read thread: %v\n", err)
			os.Exit(1)
		}
		if *asJSON {
			_ = json.NewEncoder(os.Stdout).Encode(msgs)
			return
		}
		fmt.Printf("thread %s: %d messages\n", *thread, len(msgs))
		for _, m := range msgs {
			flag := " "
			if !m.Read {
				flag = "*"
			}
			fmt.Printf("%s %s  %-12s  %s\n", flag, m.FormatSentAt(), m.SenderID, m.Content)
		}
	case *referral != "":
		ref, err := st.GetReferral(*referral)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read referral: %v\n", err)
			os.Exit(1)
		}
		_ = json.NewEncoder(os.Stdout).Encode(ref)
	default:
		refs, err := st.ListReferrals()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list referrals: %v\n", err)
			os.Exit(1)
		}
		if *asJSON {
			_ = json.NewEncoder(os.Stdout).Encode(refs)
			return
		}
		fmt.Printf("%d referrals\n", len(refs))
		for _, r := range refs {
			fmt.Printf("%-40s %-10s %-10s %-15s %s -> %s\n", r.ID, r.Kind, r.Status, r.Specialty, r.ReferringDoctorID, r.ReceivingDoctorID)
		}
	}
}
