// Command lodgectl inspects and maintains the stored submissions.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/parisxmas/lodgeforms/internal/config"
	"github.com/parisxmas/lodgeforms/internal/db"
	"github.com/parisxmas/lodgeforms/internal/repository"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lodgectl",
		Short:         "Inspect and maintain lodge form submissions",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(listCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(hashPasswordCmd())
	return root
}

// openStore returns the store selected by LODGE_STORE and a func closing it.
func openStore(cfg *config.Config) (repository.RecordStore, func(), error) {
	if cfg.Store == config.StoreFile {
		s, err := repository.NewFileStore(cfg.DataDir)
		return s, func() {}, err
	}
	s, pool, err := openOxi(cfg)
	if err != nil {
		return nil, nil, err
	}
	return s, pool.Close, nil
}

func openOxi(cfg *config.Config) (*repository.OxiStore, *db.Pool, error) {
	addr := net.JoinHostPort(cfg.OxiDBHost, strconv.Itoa(cfg.OxiDBPort))
	pool, err := db.NewPool(addr, 1, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to OxiDB at %s: %w", addr, err)
	}
	return repository.NewOxiStore(pool), pool, nil
}

func collectionArgs(args []string) ([]string, error) {
	if len(args) == 0 {
		return []string{repository.BookingsCollection, repository.ContactsCollection}, nil
	}
	for _, a := range args {
		if a != repository.BookingsCollection && a != repository.ContactsCollection {
			return nil, fmt.Errorf("unknown collection %q (want %s or %s)", a, repository.BookingsCollection, repository.ContactsCollection)
		}
	}
	return args, nil
}
