// Package seed loads development fixtures through the service layer, so
// seeded data goes through the same rules as API traffic.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Fixture is the root of a seed file.
type Fixture struct {
	Families []Family `yaml:"families"`
}

type Family struct {
	Title              string   `yaml:"title"`
	Email              string   `yaml:"mail"`
	Password           string   `yaml:"password"`
	Username           string   `yaml:"username"`
	TaskCategories     []string `yaml:"task_categories"`
	WishlistCategories []string `yaml:"wishlist_categories"`
	Members            []Member `yaml:"members"`
	Tasks              []Task   `yaml:"tasks"`
}

type Member struct {
	Email    string         `yaml:"mail"`
	Username string         `yaml:"username"`
	Type     string         `yaml:"member_type"`
	Password string         `yaml:"password"`
	Points   int            `yaml:"points"`
	Wishlist []WishlistItem `yaml:"wishlist"`
}

type WishlistItem struct {
	Name           string `yaml:"item_name"`
	Description    string `yaml:"description"`
	RequiredPoints int    `yaml:"required_points"`
	Category       string `yaml:"category"`
	Priority       int    `yaml:"priority"`
}

type Task struct {
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Mandatory   bool          `yaml:"mandatory"`
	Category    string        `yaml:"category"`
	AssignTo    string        `yaml:"assign_to"`
	Points      int           `yaml:"points"`
	Penalty     int           `yaml:"penalty"`
	DueIn       time.Duration `yaml:"due_in"`
}

// Summary counts what a seed run created.
type Summary struct {
	Families    int
	Skipped     int
	Members     int
	Tasks       int
	Assignments int
	Items       int
}

// Load reads and parses a seed file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i, fam := range f.Families {
		if fam.Email == "" || fam.Title == "" {
			return nil, fmt.Errorf("family %d: title and mail are required", i)
		}
	}
	return &f, nil
}

type Seeder struct {
	services *service.Services
	store    repository.Store
	clock    func() time.Time
	log      *logrus.Entry
}

func NewSeeder(services *service.Services, store repository.Store, log *logrus.Entry) *Seeder {
	return &Seeder{services: services, store: store, clock: time.Now, log: log}
}

// Apply creates every family in f. Families whose account email already
// exists are skipped, so running the same file twice is harmless.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (Summary, error) {
	var sum Summary
	for _, fam := range f.Families {
		existing, err := s.store.Repos().FamilyRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(fam.Email)))
		if err != nil {
			return sum, err
		}
		if existing != nil {
			s.log.WithField("family", fam.Email).Info("family already exists, skipping")
			sum.Skipped++
			continue
		}
		if err := s.seedFamily(ctx, fam, &sum); err != nil {
			return sum, fmt.Errorf("family %s: %w", fam.Email, err)
		}
		sum.Families++
	}

	s.log.WithFields(logrus.Fields{
		"families":    sum.Families,
		"skipped":     sum.Skipped,
		"members":     sum.Members,
		"tasks":       sum.Tasks,
		"assignments": sum.Assignments,
		"items":       sum.Items,
	}).Info("seed complete")
	return sum, nil
}

func (s *Seeder) seedFamily(ctx context.Context, fam Family, sum *Summary) error {
	username := fam.Username
	if username == "" {
		username = "parent"
	}
	res, err := s.services.Auth.SignUp(ctx, service.SignUpInput{
		Title:    fam.Title,
		Email:    fam.Email,
		Password: fam.Password,
		Username: username,
	})
	if err != nil {
		return err
	}
	parent := service.ActorFor(res.Member)

	taskCategories, err := s.categories(ctx, parent, types.CategoryTask, fam.TaskCategories)
	if err != nil {
		return err
	}
	wishlistCategories, err := s.categories(ctx, parent, types.CategoryWishlist, fam.WishlistCategories)
	if err != nil {
		return err
	}

	for _, m := range fam.Members {
		member, err := s.services.Member.CreateMember(ctx, parent, service.CreateMemberInput{
			Email:    m.Email,
			Username: m.Username,
			TypeName: m.Type,
			Password: m.Password,
		})
		if err != nil {
			return fmt.Errorf("member %s: %w", m.Email, err)
		}
		sum.Members++

		if m.Points > 0 {
			if _, err := s.services.Wallet.ManualAdjust(ctx, parent, service.ManualAdjustInput{
				MemberEmail: member.Email,
				Points:      m.Points,
				Description: "Seed balance",
			}); err != nil {
				return fmt.Errorf("member %s: %w", m.Email, err)
			}
		}

		for _, item := range m.Wishlist {
			categoryID, ok := wishlistCategories[item.Category]
			if !ok {
				return fmt.Errorf("wishlist item %q: unknown category %q", item.Name, item.Category)
			}
			if _, _, err := s.services.Wishlist.AddItemForMember(ctx, parent, member.Email, service.WishlistItemInput{
				ItemName:       item.Name,
				Description:    item.Description,
				RequiredPoints: item.RequiredPoints,
				CategoryID:     categoryID,
				Priority:       item.Priority,
			}); err != nil {
				return fmt.Errorf("wishlist item %q: %w", item.Name, err)
			}
			sum.Items++
		}
	}

	for _, t := range fam.Tasks {
		in := service.CreateTaskInput{
			Title:       t.Title,
			Description: t.Description,
			IsMandatory: t.Mandatory,
		}
		if t.Category != "" {
			id, ok := taskCategories[t.Category]
			if !ok {
				return fmt.Errorf("task %q: unknown category %q", t.Title, t.Category)
			}
			in.CategoryID = &id
		}
		task, err := s.services.Task.CreateTask(ctx, parent, in)
		if err != nil {
			return fmt.Errorf("task %q: %w", t.Title, err)
		}
		sum.Tasks++

		if t.AssignTo == "" {
			continue
		}
		dueIn := t.DueIn
		if dueIn <= 0 {
			dueIn = 24 * time.Hour
		}
		if _, err := s.services.Task.AssignTask(ctx, parent, service.AssignTaskInput{
			TaskID:         task.ID,
			MemberEmail:    t.AssignTo,
			AssignedPoints: t.Points,
			PenaltyPoints:  t.Penalty,
			Deadline:       s.clock().Add(dueIn),
		}); err != nil {
			return fmt.Errorf("task %q: %w", t.Title, err)
		}
		sum.Assignments++
	}

	s.log.WithFields(logrus.Fields{"family": fam.Email, "members": len(fam.Members)}).Info("family seeded")
	return nil
}

// categories creates the named categories and returns their ids by title.
func (s *Seeder) categories(ctx context.Context, parent service.Actor, kind types.CategoryKind, titles []string) (map[string]string, error) {
	ids := make(map[string]string, len(titles))
	for _, title := range titles {
		c, err := s.services.Category.Create(ctx, parent, kind, service.CategoryInput{Title: title})
		if err != nil {
			return nil, fmt.Errorf("%s category %q: %w", kind, title, err)
		}
		ids[title] = c.ID
	}
	return ids, nil
}
