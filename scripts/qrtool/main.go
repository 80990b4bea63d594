// Command qrtool mints and inspects signed permit scan codes from the
// command line. Handy for provisioning gate devices with test codes and
// for debugging rejected scans without a running API.
//
// Usage:
//
//	qrtool -secret s3cret issue <submission-id>
//	qrtool -secret s3cret parse <token>
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/simlok-id/simlok-api/pkg/qrtoken"
)

func main() {
	secret := flag.String("secret", os.Getenv("QR_TOKEN_SECRET"), "HMAC signing secret (or QR_TOKEN_SECRET env)")
	ttl := flag.Duration("ttl", 0, "token lifetime for issue, 0 uses the signer default")
	allowExpired := flag.Bool("allow-expired", false, "skip the expiry check when parsing")
	flag.Parse()

	if *secret == "" {
		fatal("signing secret required: pass -secret or set QR_TOKEN_SECRET")
	}
	if flag.NArg() != 2 {
		fatal("usage: qrtool [flags] issue <submission-id> | parse <token>")
	}

	signer := qrtoken.NewSigner(*secret, *ttl)

	switch flag.Arg(0) {
	case "issue":
		token, expiresAt, err := signer.Issue(flag.Arg(1))
		if err != nil {
			fatal("issue failed: %v", err)
		}
		fmt.Printf("token:      %s\n", token)
		fmt.Printf("expires_at: %s\n", expiresAt.Format(time.RFC3339))
	case "parse":
		submissionID, expiresAt, err := signer.Parse(flag.Arg(1), *allowExpired)
		if err != nil {
			fatal("parse failed: %v", err)
		}
		fmt.Printf("submission: %s\n", submissionID)
		fmt.Printf("expires_at: %s\n", expiresAt.Format(time.RFC3339))
	default:
		fatal("unknown command %q: want issue or parse", flag.Arg(0))
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
