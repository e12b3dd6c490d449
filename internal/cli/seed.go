package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/hackgods/vetclinic-scheduling/internal/db"
	"github.com/hackgods/vetclinic-scheduling/internal/principal"
)

type SeedOptions struct {
	Admins       int
	Doctors      int
	Owners       int
	PetsPerOwner int
	Listings     int
}

type seedUser struct {
	ID    uuid.UUID
	Name  string
	Email string
	Role  principal.Role
}

type seedDoctor struct {
	ID        uuid.UUID
	Name      string
	Specialty string
}

type seedPatient struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Name    string
	Species string
	Breed   string
}

type seedListing struct {
	ID          uuid.UUID
	PostedBy    uuid.UUID
	AnimalName  string
	Species     string
	Age         int
	Description string
}

type seedData struct {
	Users    []seedUser
	Doctors  []seedDoctor
	Patients []seedPatient
	Listings []seedListing
}

var (
	specialties = []string{"General Practice", "Surgery", "Dermatology", "Dentistry", "Cardiology", "Exotics"}
	breeds      = map[string][]string{
		"dog":    {"Labrador", "Beagle", "Border Collie", "Dachshund", "Mixed"},
		"cat":    {"Siamese", "Maine Coon", "British Shorthair", "Domestic Shorthair"},
		"rabbit": {"Holland Lop", "Rex"},
		"bird":   {"Budgerigar", "Cockatiel"},
	}
	speciesList = []string{"dog", "cat", "rabbit", "bird"}
)

func pick(items []string) string {
	return items[gofakeit.Number(0, len(items)-1)]
}

// planSeed generates the demo dataset. Doctors get a user row with the same
// id so a doctor principal maps straight onto their schedule.
func planSeed(opts SeedOptions) seedData {
	var data seedData

	for i := 0; i < opts.Admins; i++ {
		data.Users = append(data.Users, seedUser{ID: uuid.New(), Name: gofakeit.Name(), Email: gofakeit.Email(), Role: principal.RoleAdmin})
	}
	for i := 0; i < opts.Doctors; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		data.Users = append(data.Users, seedUser{ID: id, Name: name, Email: gofakeit.Email(), Role: principal.RoleDoctor})
		data.Doctors = append(data.Doctors, seedDoctor{ID: id, Name: name, Specialty: pick(specialties)})
	}
	for i := 0; i < opts.Owners; i++ {
		owner := seedUser{ID: uuid.New(), Name: gofakeit.Name(), Email: gofakeit.Email(), Role: principal.RoleOwner}
		data.Users = append(data.Users, owner)
		for j := 0; j < opts.PetsPerOwner; j++ {
			species := pick(speciesList)
			data.Patients = append(data.Patients, seedPatient{
				ID:      uuid.New(),
				OwnerID: owner.ID,
				Name:    gofakeit.PetName(),
				Species: species,
				Breed:   pick(breeds[species]),
			})
		}
	}

	if opts.Listings > 0 && opts.Admins > 0 {
		poster := data.Users[0].ID
		for i := 0; i < opts.Listings; i++ {
			species := pick(speciesList)
			data.Listings = append(data.Listings, seedListing{
				ID:          uuid.New(),
				PostedBy:    poster,
				AnimalName:  gofakeit.PetName(),
				Species:     species,
				Age:         gofakeit.Number(0, 12),
				Description: fmt.Sprintf("Friendly %s looking for a home.", pick(breeds[species])),
			})
		}
	}
	return data
}

func SeedCmd() *cobra.Command {
	var (
		opts SeedOptions
		seed int64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo clinic data",
		Long:  "Insert fake users, doctors, patients and adoption listings for local development.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			gofakeit.Seed(seed)

			pool, logger, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			defer func() { _ = logger.Sync() }()

			data := planSeed(opts)
			if err := db.WithTx(cmd.Context(), pool, func(tx pgx.Tx) error {
				return insertSeed(cmd.Context(), tx, data)
			}); err != nil {
				return fmt.Errorf("seed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Seeded %d users, %d doctors, %d patients, %d listings (seed %d)\n",
				len(data.Users), len(data.Doctors), len(data.Patients), len(data.Listings), seed)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Admins, "admins", 1, "Number of admin users")
	cmd.Flags().IntVar(&opts.Doctors, "doctors", 5, "Number of doctors")
	cmd.Flags().IntVar(&opts.Owners, "owners", 50, "Number of pet owners")
	cmd.Flags().IntVar(&opts.PetsPerOwner, "pets-per-owner", 2, "Pets registered per owner")
	cmd.Flags().IntVar(&opts.Listings, "listings", 10, "Adoption listings (needs at least one admin)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 picks one from the clock)")
	return cmd
}

func insertSeed(ctx context.Context, tx pgx.Tx, data seedData) error {
	batch := &pgx.Batch{}
	for _, u := range data.Users {
		batch.Queue(`INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4)`,
			u.ID, u.Name, u.Email, string(u.Role))
	}
	for _, d := range data.Doctors {
		batch.Queue(`INSERT INTO doctors (id, name, specialty) VALUES ($1, $2, $3)`,
			d.ID, d.Name, d.Specialty)
	}
	for _, p := range data.Patients {
		batch.Queue(`INSERT INTO patients (id, owner_id, name, species, breed) VALUES ($1, $2, $3, $4, $5)`,
			p.ID, p.OwnerID, p.Name, p.Species, p.Breed)
	}
	for _, l := range data.Listings {
		batch.Queue(`INSERT INTO adoption_listings (id, posted_by, animal_name, species, age, description) VALUES ($1, $2, $3, $4, $5, $6)`,
			l.ID, l.PostedBy, l.AnimalName, l.Species, l.Age, l.Description)
	}
	return tx.SendBatch(ctx, batch).Close()
}
