package kinds

import (
	"github.com/ssgtools/tpconsole/internal/mapping"
	"github.com/ssgtools/tpconsole/internal/pipeline"
	"github.com/ssgtools/tpconsole/internal/transform"
)

// Cell transforms shared by the mapping tables.
var (
	asDate   mapping.Transform = func(v string) any { return transform.ToCompactDate(v) }
	asTime   mapping.Transform = func(v string) any { return transform.ToHHMM(v) }
	asNumber mapping.Transform = transform.ToNumber
)

func init() {
	registerCourseSessions()
}

func registerCourseSessions() {
	pipeline.Register(pipeline.Kind{
		Key:         "course_sessions",
		Label:       "Course Sessions",
		SheetName:   "Course Sessions",
		Submittable: false,
		Mappings: []mapping.ColumnMapping{
			{Column: "Start Date", Path: "startDate", Required: true, Transform: asDate},
			{Column: "End Date", Path: "endDate", Required: true, Transform: asDate},
			{Column: "Start Time", Path: "startTime", Required: true, Transform: asTime},
			{Column: "End Time", Path: "endTime", Required: true, Transform: asTime},
			{Column: "Mode of Training", Path: "modeOfTraining", Required: true},
			{Column: "Venue Block", Path: "venue.block", Required: false},
			{Column: "Venue Street", Path: "venue.street", Required: false},
			{Column: "Venue Floor", Path: "venue.floor", Required: false},
			{Column: "Venue Unit", Path: "venue.unit", Required: false},
			{Column: "Venue Building", Path: "venue.building", Required: false},
			{Column: "Venue Postal Code", Path: "venue.postalCode", Required: false},
			{Column: "Venue Room", Path: "venue.room", Required: false},
		},
		Validate: ValidateCourseSession,
	})
}

var courseSessionRules = []Rule{
	required("startDate", "Start date is required"),
	required("endDate", "End date is required"),
	required("startTime", "Start time is required"),
	required("endTime", "End time is required"),
	required("modeOfTraining", "Mode of Training is required"),
	dateOrder("startDate", "startDate", "endDate", "Session start date must be before end date"),
}

// ValidateCourseSession applies the course session rule set.
func ValidateCourseSession(rec mapping.Record) mapping.Verdict {
	return runRules(rec, courseSessionRules)
}
