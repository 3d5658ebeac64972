package sqlstore

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// TableName is the table predictions are stored in.
const TableName = "churn_predictions"

// Column names of the churn_predictions table.
const (
	ColumnID                   = "id"
	ColumnSessionID            = "session_id"
	ColumnGender               = "gender"
	ColumnSeniorCitizen        = "senior_citizen"
	ColumnPartner              = "partner"
	ColumnDependents           = "dependents"
	ColumnTenure               = "tenure"
	ColumnContract             = "contract"
	ColumnPaymentMethod        = "payment_method"
	ColumnPaperlessBilling     = "paperless_billing"
	ColumnMonthlyCharges       = "monthly_charges"
	ColumnTotalCharges         = "total_charges"
	ColumnPhoneService         = "phone_service"
	ColumnMultipleLines        = "multiple_lines"
	ColumnInternetService      = "internet_service"
	ColumnOnlineSecurity       = "online_security"
	ColumnOnlineBackup         = "online_backup"
	ColumnDeviceProtection     = "device_protection"
	ColumnTechSupport          = "tech_support"
	ColumnStreamingTV          = "streaming_tv"
	ColumnStreamingMovies      = "streaming_movies"
	ColumnChurnProbability     = "churn_probability"
	ColumnPredictedChurnStatus = "predicted_churn_status"
	ColumnPredictionTimestamp  = "prediction_timestamp"
)

// Columns lists every column in scan order.
var Columns = []string{
	ColumnID,
	ColumnSessionID,
	ColumnGender,
	ColumnSeniorCitizen,
	ColumnPartner,
	ColumnDependents,
	ColumnTenure,
	ColumnContract,
	ColumnPaymentMethod,
	ColumnPaperlessBilling,
	ColumnMonthlyCharges,
	ColumnTotalCharges,
	ColumnPhoneService,
	ColumnMultipleLines,
	ColumnInternetService,
	ColumnOnlineSecurity,
	ColumnOnlineBackup,
	ColumnDeviceProtection,
	ColumnTechSupport,
	ColumnStreamingTV,
	ColumnStreamingMovies,
	ColumnChurnProbability,
	ColumnPredictedChurnStatus,
	ColumnPredictionTimestamp,
}

var (
	predictionColumns = []*schema.Column{
		{Name: ColumnID, Type: field.TypeString, Unique: true},
		{Name: ColumnSessionID, Type: field.TypeString, Default: ""},
		{Name: ColumnGender, Type: field.TypeString},
		{Name: ColumnSeniorCitizen, Type: field.TypeInt},
		{Name: ColumnPartner, Type: field.TypeString},
		{Name: ColumnDependents, Type: field.TypeString},
		{Name: ColumnTenure, Type: field.TypeInt},
		{Name: ColumnContract, Type: field.TypeString},
		{Name: ColumnPaymentMethod, Type: field.TypeString},
		{Name: ColumnPaperlessBilling, Type: field.TypeString},
		{Name: ColumnMonthlyCharges, Type: field.TypeFloat64},
		{Name: ColumnTotalCharges, Type: field.TypeFloat64},
		{Name: ColumnPhoneService, Type: field.TypeString},
		{Name: ColumnMultipleLines, Type: field.TypeString},
		{Name: ColumnInternetService, Type: field.TypeString},
		{Name: ColumnOnlineSecurity, Type: field.TypeString},
		{Name: ColumnOnlineBackup, Type: field.TypeString},
		{Name: ColumnDeviceProtection, Type: field.TypeString},
		{Name: ColumnTechSupport, Type: field.TypeString},
		{Name: ColumnStreamingTV, Type: field.TypeString},
		{Name: ColumnStreamingMovies, Type: field.TypeString},
		{Name: ColumnChurnProbability, Type: field.TypeFloat64},
		{Name: ColumnPredictedChurnStatus, Type: field.TypeString},
		{Name: ColumnPredictionTimestamp, Type: field.TypeTime},
	}

	// PredictionsTable is the migration schema of the churn_predictions table.
	PredictionsTable = &schema.Table{
		Name:       TableName,
		Columns:    predictionColumns,
		PrimaryKey: []*schema.Column{predictionColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "churnprediction_prediction_timestamp",
				Unique:  false,
				Columns: []*schema.Column{predictionColumns[23]},
			},
			{
				Name:    "churnprediction_session_id",
				Unique:  false,
				Columns: []*schema.Column{predictionColumns[1]},
			},
		},
	}

	// Tables holds every table managed by the store.
	Tables = []*schema.Table{
		PredictionsTable,
	}
)
