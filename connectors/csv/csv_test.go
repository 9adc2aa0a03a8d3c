package csv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistix-stats/domain/logistics"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// writeSourceDir lays down a minimal but complete set of the eight tables.
func writeSourceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, OrdersFile,
		"order_id,customer_id,transport_id,order_date,estimated_delivery_date,actual_delivery_date,total_amount,delivery_status,payment_status,seasonal_period,claim_flag\n"+
			"O1,C1,T1,2024-01-01,2024-01-05,2024-01-07,120.50,Delivered,Paid,Christmas,true\n"+
			"O2,C2,T2,2024-01-02,2024-01-06,2024-01-06,80,In Transit,Pending,Standard,false\n")
	writeFile(t, dir, ProductsFile,
		"product_id,fragility_class,theft_attractiveness_score,christmas_popularity_multiplier\n"+
			"P1,High,7.5,1.2\n"+
			"P2,Low,2.0,1.0\n")
	writeFile(t, dir, StatesRiskFile,
		"state_code,state_name,risk_score,risk_level\n"+
			"CA,California,8.1,High\n")
	writeFile(t, dir, TransportModeFile,
		"transport_id,transport_type,cost_per_km,co2_emission_per_km\n"+
			"T1,Truck,1.5,0.3\n"+
			"T2,Train,0.8,0.1\n")
	writeFile(t, dir, ClaimsFile,
		"claim_id,order_id,claim_type,claim_status,claim_date,resolution_date,claim_amount,refunded_amount,resolution_time_days\n"+
			"CL1,O1,Damaged,Resolved,2024-01-08,2024-01-10,30,25,2\n")
	writeFile(t, dir, CustomersFile,
		"customer_id,registration_date,churn_date,churn_status,subscription_type\n"+
			"C1,2023-05-01,,Active,Premium\n"+
			"C2,2023-06-10,2024-02-01,Churned,Standard\n")
	writeFile(t, dir, OrderProductFile,
		"order_id,product_id,quantity,line_total,return_flag,refund_amount\n"+
			"O1,P1,2,100,false,0\n"+
			"O1,P2,1,20.5,true,5\n")
	writeFile(t, dir, OrderRouteLegFile,
		"order_id,state_code,entered_at,exited_at,distance_km,leg_duration_hours,vandalism_incidents,theft_incident_flag\n"+
			"O1,CA,2024-01-02,2024-01-03,300,10,1,true\n"+
			"O1,NV,2024-01-03,2024-01-04,200,5,0,false\n")
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeSourceDir(t)
	raw, warns, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, warns)

	require.Len(t, raw.Orders, 2)
	o := raw.Orders[0]
	assert.Equal(t, "O1", o.OrderID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), o.OrderDate)
	assert.Equal(t, 120.50, o.TotalAmount)
	assert.True(t, o.ClaimFlag)

	require.Len(t, raw.Customers, 2)
	assert.Nil(t, raw.Customers[0].ChurnDate)
	require.NotNil(t, raw.Customers[1].ChurnDate)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), *raw.Customers[1].ChurnDate)

	require.Len(t, raw.RouteLegs, 2)
	assert.Equal(t, 1, raw.RouteLegs[0].VandalismIncidents)
	assert.True(t, raw.RouteLegs[0].TheftIncidentFlag)

	assert.Len(t, raw.Version, 12)
}

func TestLoadVersionStable(t *testing.T) {
	dir := writeSourceDir(t)
	raw1, _, err := Load(dir)
	require.NoError(t, err)
	raw2, _, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, raw1.Version, raw2.Version)

	// Changing any source byte must change the version.
	writeFile(t, dir, OrdersFile,
		"order_id,customer_id,transport_id,order_date,estimated_delivery_date,actual_delivery_date,total_amount,delivery_status,payment_status,seasonal_period,claim_flag\n"+
			"O1,C1,T1,2024-01-01,2024-01-05,2024-01-07,999,Delivered,Paid,Christmas,true\n")
	raw3, _, err := Load(dir)
	require.NoError(t, err)
	assert.NotEqual(t, raw1.Version, raw3.Version)
}

func TestLoadMissingFile(t *testing.T) {
	dir := writeSourceDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, ClaimsFile)))

	_, _, err := Load(dir)
	require.Error(t, err)
	var missing *logistics.MissingSourceError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, ClaimsFile, missing.File)
	assert.True(t, IsMissingSource(err))
}

func TestLoadMissingColumn(t *testing.T) {
	dir := writeSourceDir(t)
	writeFile(t, dir, TransportModeFile,
		"transport_id,transport_type,cost_per_km\n"+
			"T1,Truck,1.5\n")

	_, _, err := Load(dir)
	require.Error(t, err)
	var schema *logistics.SchemaError
	require.True(t, errors.As(err, &schema))
	assert.Equal(t, TransportModeFile, schema.Table)
	assert.Equal(t, "co2_emission_per_km", schema.Column)
}

func TestLoadBadDateWarnsAndContinues(t *testing.T) {
	dir := writeSourceDir(t)
	writeFile(t, dir, OrdersFile,
		"order_id,customer_id,transport_id,order_date,estimated_delivery_date,actual_delivery_date,total_amount,delivery_status,payment_status,seasonal_period,claim_flag\n"+
			"O1,C1,T1,not-a-date,2024-01-05,2024-01-07,120.50,Delivered,Paid,Christmas,true\n")

	raw, warns, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, warns, 1)
	assert.Equal(t, OrdersFile, warns[0].Table)
	assert.Equal(t, "order_date", warns[0].Column)
	assert.Equal(t, "not-a-date", warns[0].Value)
	assert.True(t, raw.Orders[0].OrderDate.IsZero())
	// The rest of the row is intact.
	assert.Equal(t, 120.50, raw.Orders[0].TotalAmount)
}

func TestHashMatchesLoadVersion(t *testing.T) {
	dir := writeSourceDir(t)
	raw, _, err := Load(dir)
	require.NoError(t, err)
	h, err := Hash(dir)
	require.NoError(t, err)
	assert.Equal(t, raw.Version, h)
}

func TestHashMissingFile(t *testing.T) {
	dir := writeSourceDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, ProductsFile)))
	_, err := Hash(dir)
	var missing *logistics.MissingSourceError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, ProductsFile, missing.File)
}
