package httpapi

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGeneratePropertiesExport(t *testing.T) {
	created := time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC)
	data, err := GeneratePropertiesExport([]domain.Property{
		{
			Name:         "Harbor Inn",
			ExpediaID:    strPtr("EXP-1"),
			UserEmail:    strPtr("ops@harbor.test"),
			UserPassword: strPtr("never-exported"),
			SubPortfolio: &domain.SubPortfolioRef{ID: "sp", Name: "West Coast"},
			Portfolio:    &domain.PortfolioRef{ID: "pf", Name: "Coastal"},
			CreatedAt:    created,
		},
		{Name: "Valley Lodge"},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Properties"}, f.GetSheetList())
	rows, err := f.GetRows("Properties")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, propertyExportHeaders, rows[0])
	assert.Equal(t, []string{"Harbor Inn", "Coastal", "West Coast", "EXP-1", "", "", "", "", "", "ops@harbor.test", "2024-03-05 08:30:00"}, rows[1])
	assert.Equal(t, "Valley Lodge", rows[2][0])
	assert.NotContains(t, string(data), "never-exported")
}

func TestProperties_ExportEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.grant(t, "u1", domain.SubPortfolioScope(e.west))

	rec := e.do(http.MethodGet, "/api/v1/properties/export?sortBy=name", "u1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=properties_")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Properties")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Bay Suites", rows[1][0])
	assert.Equal(t, "Harbor Inn", rows[2][0])

	rec = e.do(http.MethodPost, "/api/v1/properties/export", "u1", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
