package seed

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"linkedevents/db"
	"linkedevents/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// File is the on-disk seed format: reference data a fresh deployment needs
// before any API writes make sense.
type File struct {
	DataSources []struct {
		ID                    string `yaml:"id"`
		Name                  string `yaml:"name"`
		APIKey                string `yaml:"api_key"`
		UserEditableResources bool   `yaml:"user_editable_resources"`
		Private               bool   `yaml:"private"`
	} `yaml:"data_sources"`

	Languages []struct {
		ID              string            `yaml:"id"`
		Name            map[string]string `yaml:"name"`
		ServiceLanguage bool              `yaml:"service_language"`
	} `yaml:"languages"`

	Organizations []struct {
		ID         string `yaml:"id"`
		Name       string `yaml:"name"`
		Parent     string `yaml:"parent"`
		DataSource string `yaml:"data_source"`
	} `yaml:"organizations"`

	Keywords []struct {
		ID         string            `yaml:"id"`
		Name       map[string]string `yaml:"name"`
		AltLabels  []string          `yaml:"alt_labels"`
		DataSource string            `yaml:"data_source"`
		Parents    []string          `yaml:"parents"`
	} `yaml:"keywords"`

	KeywordSets []struct {
		ID       string            `yaml:"id"`
		Name     map[string]string `yaml:"name"`
		Usage    string            `yaml:"usage"`
		Keywords []string          `yaml:"keywords"`
	} `yaml:"keyword_sets"`
}

// Load reads a YAML seed file and upserts its contents. Existing documents
// with the same id are overwritten; seeding is idempotent.
func Load(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	replace := options.Replace().SetUpsert(true)
	now := time.Now().UTC()

	for _, ds := range file.DataSources {
		doc := models.DataSource{
			ID:                    ds.ID,
			Name:                  ds.Name,
			UserEditableResources: ds.UserEditableResources,
			Private:               ds.Private,
		}
		if ds.APIKey != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(ds.APIKey), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash api key for %s: %w", ds.ID, err)
			}
			doc.APIKeyHash = string(hash)
		}
		if _, err := db.DataSourcesCollection.ReplaceOne(ctx, bson.M{"_id": ds.ID}, doc, replace); err != nil {
			return fmt.Errorf("seed data source %s: %w", ds.ID, err)
		}
	}

	for _, lang := range file.Languages {
		doc := models.Language{
			ID:              lang.ID,
			Name:            models.MultiLang(lang.Name),
			ServiceLanguage: lang.ServiceLanguage,
		}
		if _, err := db.LanguagesCollection.ReplaceOne(ctx, bson.M{"_id": lang.ID}, doc, replace); err != nil {
			return fmt.Errorf("seed language %s: %w", lang.ID, err)
		}
	}

	for _, org := range file.Organizations {
		doc := models.Organization{
			ID:               org.ID,
			Name:             org.Name,
			Parent:           org.Parent,
			DataSource:       org.DataSource,
			CreatedTime:      now,
			LastModifiedTime: now,
		}
		if _, err := db.OrganizationsCollection.ReplaceOne(ctx, bson.M{"_id": org.ID}, doc, replace); err != nil {
			return fmt.Errorf("seed organization %s: %w", org.ID, err)
		}
	}

	for _, kw := range file.Keywords {
		doc := models.Keyword{
			ID:               kw.ID,
			Name:             models.MultiLang(kw.Name),
			AltLabels:        kw.AltLabels,
			DataSource:       kw.DataSource,
			Parents:          kw.Parents,
			CreatedTime:      now,
			LastModifiedTime: now,
		}
		if _, err := db.KeywordsCollection.ReplaceOne(ctx, bson.M{"_id": kw.ID}, doc, replace); err != nil {
			return fmt.Errorf("seed keyword %s: %w", kw.ID, err)
		}
	}

	for _, set := range file.KeywordSets {
		usage := set.Usage
		if usage == "" {
			usage = models.KeywordSetKeyword
		}
		doc := models.KeywordSet{
			ID:       set.ID,
			Name:     models.MultiLang(set.Name),
			Usage:    usage,
			Keywords: set.Keywords,
		}
		if _, err := db.KeywordSetsCollection.ReplaceOne(ctx, bson.M{"_id": set.ID}, doc, replace); err != nil {
			return fmt.Errorf("seed keyword set %s: %w", set.ID, err)
		}
	}

	log.Printf("seeded %d data sources, %d languages, %d organizations, %d keywords, %d keyword sets",
		len(file.DataSources), len(file.Languages), len(file.Organizations),
		len(file.Keywords), len(file.KeywordSets))
	return nil
}
