package kinds

import (
	"github.com/ssgtools/tpconsole/internal/mapping"
	"github.com/ssgtools/tpconsole/internal/pipeline"
)

func init() {
	registerEnrolments()
}

func registerEnrolments() {
	pipeline.Register(pipeline.Kind{
		Key:         "enrolments",
		Label:       "Enrolments",
		SheetName:   "Enrolments",
		Submittable: true,
		Mappings: []mapping.ColumnMapping{
			{Column: "Course Run ID", Path: "course.run.id", Required: true},
			{Column: "Course Reference Number", Path: "course.referenceNumber", Required: true},
			{Column: "Trainee ID", Path: "trainee.id", Required: true},
			{Column: "Trainee ID Type", Path: "trainee.idType.code", Required: true},
			{Column: "Trainee Full Name", Path: "trainee.fullName", Required: true},
			{Column: "Trainee Date of Birth", Path: "trainee.dateOfBirth", Required: true},
			{Column: "Trainee Email", Path: "trainee.emailAddress", Required: false},
			{Column: "Enrolment Date", Path: "trainee.enrolmentDate", Required: true},
			{Column: "Sponsorship Type", Path: "trainee.sponsorshipType", Required: true},
			{Column: "Area Code", Path: "trainee.contactNumber.areaCode", Required: false, Transform: asNumber},
			{Column: "Country Code", Path: "trainee.contactNumber.countryCode", Required: false, Transform: asNumber},
			{Column: "Phone Number", Path: "trainee.contactNumber.phoneNumber", Required: false},
			{Column: "Discount Amount", Path: "trainee.fees.discountAmount", Required: false, Transform: asNumber},
			{Column: "Collection Status", Path: "trainee.fees.collectionStatus", Required: false},
			{Column: "Employer UEN", Path: "employer.uen", Required: false},
			{Column: "Employer Full Name", Path: "employer.fullName", Required: false},
			{Column: "Employer Email", Path: "employer.emailAddress", Required: false},
			{Column: "Training Partner Code", Path: "trainingPartner.code", Required: true},
			{Column: "Training Partner UEN", Path: "trainingPartner.uen", Required: false},
		},
		Validate: ValidateEnrolment,
	})
}

var enrolmentRules = []Rule{
	required("course.run.id", "Course Run ID is required"),
	required("course.referenceNumber", "Course Reference Number is required"),
	required("trainee.id", "Trainee ID is required"),
	required("trainee.idType.code", "Trainee ID Type is required"),
	required("trainee.fullName", "Trainee Full Name is required"),
	required("trainee.dateOfBirth", "Trainee Date of Birth is required"),
	required("trainee.enrolmentDate", "Enrolment Date is required"),
	required("trainee.sponsorshipType", "Sponsorship Type is required"),
	required("trainingPartner.code", "Training Partner Code is required"),
	email("trainee.emailAddress"),
	email("employer.emailAddress"),
	uen("employer.uen"),
	uen("trainingPartner.uen"),
}

// ValidateEnrolment applies the enrolment rule set.
func ValidateEnrolment(rec mapping.Record) mapping.Verdict {
	return runRules(rec, enrolmentRules)
}
