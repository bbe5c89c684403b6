package kinds

import (
	"github.com/ssgtools/tpconsole/internal/mapping"
	"github.com/ssgtools/tpconsole/internal/pipeline"
)

func init() {
	registerAssessments()
}

func registerAssessments() {
	pipeline.Register(pipeline.Kind{
		Key:         "assessments",
		Label:       "Assessments",
		SheetName:   "Assessments",
		Submittable: true,
		Mappings: []mapping.ColumnMapping{
			{Column: "Course Run ID", Path: "course.runId", Required: true},
			{Column: "Course Reference Number", Path: "course.referenceNumber", Required: true},
			{Column: "Result", Path: "result", Required: true},
			{Column: "Grade", Path: "grade", Required: false},
			{Column: "Score", Path: "score", Required: false, Transform: asNumber},
			{Column: "Assessment Date", Path: "assessmentDate", Required: true},
			{Column: "Skill Code", Path: "skillCode", Required: false},
			{Column: "Trainee ID", Path: "trainee.id", Required: true},
			{Column: "Trainee ID Type", Path: "trainee.idType.code", Required: true},
			{Column: "Trainee Full Name", Path: "trainee.fullName", Required: true},
			{Column: "Training Partner Code", Path: "trainingPartner.code", Required: true},
			{Column: "Training Partner UEN", Path: "trainingPartner.uen", Required: false},
			{Column: "Conferring Institute Code", Path: "conferringInstitute.code", Required: false},
		},
		Validate: ValidateAssessment,
	})
}

var assessmentRules = []Rule{
	required("course.runId", "Course Run ID is required"),
	required("course.referenceNumber", "Course Reference Number is required"),
	required("result", "Result is required"),
	required("assessmentDate", "Assessment Date is required"),
	required("trainee.id", "Trainee ID is required"),
	required("trainee.idType.code", "Trainee ID Type is required"),
	required("trainee.fullName", "Trainee Full Name is required"),
	required("trainingPartner.code", "Training Partner Code is required"),
	numberRange("score", 0, 999, "Score must be between 0 and 999"),
	uen("trainingPartner.uen"),
}

// ValidateAssessment applies the assessment rule set.
func ValidateAssessment(rec mapping.Record) mapping.Verdict {
	return runRules(rec, assessmentRules)
}
