// cmd/preflight sanity-checks the environment before starting the API.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	admin := strings.TrimSpace(os.Getenv("ADMIN_API_KEYS"))
	pub := strings.TrimSpace(os.Getenv("PUBLIC_API_KEYS"))
	addr := strings.TrimSpace(os.Getenv("ADDR"))
	driver := strings.TrimSpace(os.Getenv("DATABASE_DRIVER"))
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	interval := strings.TrimSpace(os.Getenv("POLL_INTERVAL"))

	if admin == "" {
		fail("ADMIN_API_KEYS is empty (manual-run and delete routes will 403).")
	}
	if pub == "" {
		fail("PUBLIC_API_KEYS is empty (read routes will 401).")
	}
	for name, v := range map[string]string{"ADMIN_API_KEYS": admin, "PUBLIC_API_KEYS": pub} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	if addr == "" {
		warn("ADDR is empty; the app default will be used.")
	} else {
		ok("ADDR=" + addr)
	}

	switch driver {
	case "", "memory":
		warn("DATABASE_DRIVER is memory — watch targets and delivery logs vanish on restart.")
	case "sqlite", "postgres":
		if dbURL == "" {
			fail("DATABASE_DRIVER=" + driver + " but DATABASE_URL is empty.")
		}
		ok("DATABASE_DRIVER=" + driver)
	default:
		fail("DATABASE_DRIVER must be memory, sqlite or postgres; got " + driver)
	}

	if interval != "" {
		if d, err := time.ParseDuration(interval); err != nil {
			fail("POLL_INTERVAL is not a duration: " + interval)
		} else if d == 0 {
			warn("POLL_INTERVAL=0 disables the scheduled pass; only manual runs will happen.")
		} else if d < 10*time.Second {
			warn("POLL_INTERVAL below 10s hammers the platforms and risks blocks.")
		} else {
			ok("POLL_INTERVAL=" + interval)
		}
	}

	ok("preflight passed")
}
