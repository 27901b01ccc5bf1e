package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/yorozutantei/yorozu-scheduler/domain"
	"github.com/yorozutantei/yorozu-scheduler/storage"
)

type seedFile struct {
	Members []domain.Member `yaml:"members"`
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING")
	}
	tables := storage.DefaultTables()
	for name, dst := range map[string]*string{
		"MEMBERS_TABLE":   &tables.Members,
		"SCHEDULES_TABLE": &tables.Schedules,
		"TODOS_TABLE":     &tables.Todos,
		"MONTHLY_TABLE":   &tables.Monthly,
		"NOTES_TABLE":     &tables.Notes,
	} {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	ctx := context.Background()

	svc, err := storage.NewServiceClient(connStr)
	if err != nil {
		log.Fatalf("table service: %v", err)
	}
	if err := storage.CreateTables(ctx, svc, tables.Names()); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	if path := os.Getenv("MEMBERS_SEED"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("open seed: %v", err)
		}
		members, err := readSeed(f)
		f.Close()
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		store, err := storage.New(connStr, tables)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		for _, m := range members {
			if err := store.UpsertMember(ctx, m); err != nil {
				log.WithError(err).WithField("member", m.Name).Fatal("seed member")
			}
		}
		log.WithField("count", len(members)).Info("members seeded")
	}

	log.Info("storage init complete")
}

// readSeed parses the members list. Ids must be positive and unique and every
// member needs a name.
func readSeed(r io.Reader) ([]domain.Member, error) {
	var seed seedFile
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	seen := make(map[int]bool, len(seed.Members))
	for i, m := range seed.Members {
		m.Name = strings.TrimSpace(m.Name)
		if m.ID <= 0 || m.Name == "" {
			return nil, fmt.Errorf("member %d: id and name are required", i)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("member %d: duplicate id %d", i, m.ID)
		}
		seen[m.ID] = true
		seed.Members[i] = m
	}
	return seed.Members, nil
}
