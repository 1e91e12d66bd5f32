package labels

import (
	"testing"

	"github.com/BearBump/CargoBox/internal/models"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v4"
	"golang.org/x/text/language"
)

func TestCatalog_Label(t *testing.T) {
	c := MustNew()

	require.Equal(t, "В пути", c.Label(models.PackageStatusInTransit))
	require.Equal(t, "Готова к выдаче", c.Label(models.PackageStatusReadyPickup, "ru-RU"))
	require.Equal(t, "In transit", c.Label(models.PackageStatusInTransit, "en-US,en;q=0.9"))
	// неизвестный язык -> русский по умолчанию
	require.Equal(t, "Выдана", c.Label(models.PackageStatusDelivered, "ky"))
	require.Equal(t, "lost", c.Label(models.PackageStatus("lost")))
}

func TestCatalog_CoversEveryStatus(t *testing.T) {
	c := MustNew()
	all := statuses()
	require.Len(t, all, 7)
	for _, st := range models.StoredStatuses() {
		require.Contains(t, all, st)
	}
	for _, st := range all {
		require.NotEqual(t, string(st), c.Label(st, "ru"))
		require.NotEqual(t, string(st), c.Label(st, "en"))
	}
}

func TestCatalog_IncompleteTranslationRejected(t *testing.T) {
	b := i18n.NewBundle(language.Russian)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	_, err := b.ParseMessageFileBytes([]byte("in_transit: \"В пути\"\n"), "active.ru.yaml")
	require.NoError(t, err)

	err = (&Catalog{bundle: b}).checkComplete()
	require.ErrorContains(t, err, "no ru label for status waiting_arrival")
}
