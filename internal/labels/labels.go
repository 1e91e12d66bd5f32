// Package labels holds the display catalog for package statuses.
// It covers every status a client may see, including ones that are never stored.
package labels

import (
	"embed"
	"io/fs"
	"log/slog"

	"github.com/BearBump/CargoBox/internal/models"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pkg/errors"
	"go.yaml.in/yaml/v4"
	"golang.org/x/text/language"
)

//go:embed translation
var translationFS embed.FS

// Все статусы каталога, в порядке жизненного цикла.
var catalog = []models.PackageStatus{
	models.PackageStatusWaitingArrival,
	models.PackageStatusInChina,
	models.PackageStatusInTransit,
	models.PackageStatusInWarehouse,
	models.PackageStatusArrived,
	models.PackageStatusReadyPickup,
	models.PackageStatusDelivered,
}

type Catalog struct {
	bundle *i18n.Bundle
}

// New loads the embedded translations. Russian is the default language.
func New() (*Catalog, error) {
	bundle := i18n.NewBundle(language.Russian)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	err := fs.WalkDir(translationFS, "translation", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := translationFS.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = bundle.ParseMessageFileBytes(data, path)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "load translations")
	}
	c := &Catalog{bundle: bundle}
	if err := c.checkComplete(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkComplete fails when a loaded language has no label for some status.
func (c *Catalog) checkComplete() error {
	for _, tag := range c.bundle.LanguageTags() {
		loc := i18n.NewLocalizer(c.bundle, tag.String())
		for _, st := range statuses() {
			_, got, err := loc.LocalizeWithTag(&i18n.LocalizeConfig{MessageID: string(st)})
			if err != nil || got != tag {
				return errors.Errorf("no %s label for status %s", tag, st)
			}
		}
	}
	return nil
}

// MustNew is for wiring in main and tests; the catalog is embedded, so failure is a build defect.
func MustNew() *Catalog {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}

// Label returns the status label for the given Accept-Language values.
// Unknown statuses come back unchanged.
func (c *Catalog) Label(status models.PackageStatus, langs ...string) string {
	loc := i18n.NewLocalizer(c.bundle, langs...)
	msg, err := loc.Localize(&i18n.LocalizeConfig{MessageID: string(status)})
	if err != nil {
		var notFound *i18n.MessageNotFoundErr
		if !errors.As(err, &notFound) {
			slog.Warn("localize status", "status", status, "err", err)
		}
		return string(status)
	}
	return msg
}

// statuses lists every status the catalog knows, stored or display-only.
func statuses() []models.PackageStatus {
	out := make([]models.PackageStatus, len(catalog))
	copy(out, catalog)
	return out
}
