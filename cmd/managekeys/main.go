// Command managekeys lists, generates and revokes tool-server API keys.
//
//	managekeys list
//	managekeys generate "My LLM Client"
//	managekeys generate "User API Key" --user-id 123
//	managekeys revoke cyber_abc123...
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ayush/cybertodo/internal/apikey"
	"github.com/ayush/cybertodo/internal/config"
	"github.com/ayush/cybertodo/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	cfg := config.Load()
	logger, err := logging.New(cfg.Production(), "warn")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer logger.Sync()

	ctx := context.Background()
	keys, closeKeys, err := apikey.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "❌ Error opening key store: %v\n", err)
		return 1
	}
	defer closeKeys(ctx)

	switch args[0] {
	case "list":
		return listKeys(ctx, keys, stdout, stderr)
	case "generate":
		return generateKey(ctx, keys, args[1:], stdout, stderr)
	case "revoke":
		return revokeKey(ctx, keys, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	}
	fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
	usage(stderr)
	return 2
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Manage API keys for the CyberTODO tool server.

Usage:
  managekeys list
  managekeys generate NAME [--user-id N]
  managekeys revoke KEY
`)
}

func listKeys(ctx context.Context, keys *apikey.Manager, stdout, stderr io.Writer) int {
	all, err := keys.List(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "❌ Error listing API keys: %v\n", err)
		return 1
	}
	if len(all) == 0 {
		fmt.Fprintln(stdout, "No API keys found.")
		return 0
	}

	fmt.Fprintf(stdout, "Found %d API key(s):\n\n", len(all))
	for i, k := range all {
		status := "🟢 Active"
		if !k.IsActive {
			status = "🔴 Revoked"
		}
		owner := "System key"
		if k.UserID != nil {
			owner = fmt.Sprintf("User ID: %d", *k.UserID)
		}
		lastUsed := "Never"
		if k.LastUsed != nil {
			lastUsed = k.LastUsed.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(stdout, "%d. %s\n   Status: %s\n   %s\n   Created: %s\n   Last used: %s\n\n",
			i+1, k.Name, status, owner, k.CreatedAt.UTC().Format("2006-01-02 15:04:05"), lastUsed)
	}
	return 0
}

func generateKey(ctx context.Context, keys *apikey.Manager, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	userID := fs.Int64("user-id", 0, "bind the key to this user id")

	// Accept the flag before or after the name.
	var name string
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		name, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" && fs.NArg() > 0 {
		name = fs.Arg(0)
	}
	if name == "" {
		fmt.Fprintln(stderr, "generate requires a NAME")
		return 2
	}

	var owner *int64
	if *userID > 0 {
		owner = userID
	}
	raw, err := keys.Generate(ctx, name, owner)
	if err != nil {
		fmt.Fprintf(stderr, "❌ Error generating API key: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "✅ Generated new API key: %s\n   Name: %s\n", raw, name)
	if owner != nil {
		fmt.Fprintf(stdout, "   User ID: %d\n", *owner)
	} else {
		fmt.Fprintln(stdout, "   Type: System key")
	}
	fmt.Fprintln(stdout, "\n💡 Save this key - you won't be able to see it again!")
	return 0
}

func revokeKey(ctx context.Context, keys *apikey.Manager, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "revoke requires exactly one KEY")
		return 2
	}
	ok, err := keys.Revoke(ctx, args[0])
	if err != nil {
		fmt.Fprintf(stderr, "❌ Error revoking API key: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintln(stdout, "❌ API key not found")
		return 1
	}
	fmt.Fprintln(stdout, "✅ API key revoked successfully")
	return 0
}
