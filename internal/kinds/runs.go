package kinds

import (
	"github.com/ssgtools/tpconsole/internal/mapping"
	"github.com/ssgtools/tpconsole/internal/pipeline"
)

func init() {
	registerCourseRuns()
}

func registerCourseRuns() {
	pipeline.Register(pipeline.Kind{
		Key:         "course_runs",
		Label:       "Course Runs",
		SheetName:   "Course Runs",
		Submittable: true,
		Mappings: []mapping.ColumnMapping{
			{Column: "Course Reference Number", Path: "courseReferenceNumber", Required: true},
			{Column: "Registration Opening Date", Path: "registrationDates.opening", Required: true, Transform: asDate},
			{Column: "Registration Closing Date", Path: "registrationDates.closing", Required: true, Transform: asDate},
			{Column: "Course Start Date", Path: "courseDates.start", Required: true, Transform: asDate},
			{Column: "Course End Date", Path: "courseDates.end", Required: true, Transform: asDate},
			{Column: "Schedule Info Type Code", Path: "scheduleInfoType.code", Required: true},
			{Column: "Schedule Info Type Description", Path: "scheduleInfoType.description", Required: true},
			{Column: "Schedule Info", Path: "scheduleInfo", Required: false},
			{Column: "Mode of Training", Path: "modeOfTraining", Required: true},
			{Column: "Course Admin Email", Path: "courseAdminEmail", Required: true},
			{Column: "Intake Size", Path: "intakeSize", Required: false, Transform: asNumber},
			{Column: "Threshold", Path: "threshold", Required: false, Transform: asNumber},
			{Column: "Vacancy Code", Path: "courseVacancy.code", Required: true},
			{Column: "Vacancy Description", Path: "courseVacancy.description", Required: true},
			{Column: "Venue Block", Path: "venue.block", Required: false},
			{Column: "Venue Street", Path: "venue.street", Required: false},
			{Column: "Venue Floor", Path: "venue.floor", Required: false},
			{Column: "Venue Unit", Path: "venue.unit", Required: false},
			{Column: "Venue Building", Path: "venue.building", Required: false},
			{Column: "Venue Postal Code", Path: "venue.postalCode", Required: false},
			{Column: "Venue Room", Path: "venue.room", Required: false},
		},
		Validate: ValidateCourseRun,
	})
}

var courseRunRules = []Rule{
	required("courseReferenceNumber", "Course Reference Number is required"),
	required("registrationDates.opening", "Registration opening date is required"),
	required("registrationDates.closing", "Registration closing date is required"),
	required("courseDates.start", "Course start date is required"),
	required("courseDates.end", "Course end date is required"),
	required("modeOfTraining", "Mode of Training is required"),
	required("courseAdminEmail", "Course Admin Email is required"),
	email("courseAdminEmail"),
	required("scheduleInfoType.code", "Schedule Info Type is required"),
	required("courseVacancy.code", "Course Vacancy code is required"),
	dateOrder("registrationDates", "registrationDates.opening", "registrationDates.closing",
		"Registration opening date must be before closing date"),
	dateOrder("courseDates", "courseDates.start", "courseDates.end",
		"Course start date must be before end date"),
}

// ValidateCourseRun applies the course run rule set.
func ValidateCourseRun(rec mapping.Record) mapping.Verdict {
	return runRules(rec, courseRunRules)
}
