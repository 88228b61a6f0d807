package handler

import (
	"time"

	programservice "cohort/internal/program/service"

	"cohort/internal/program/models"
	id "cohort/pkg/domain"
)

// CreateProgramRequest is the JSON body of POST /programs.
type CreateProgramRequest struct {
	DepartmentID      string             `json:"department_id"`
	Name              string             `json:"name"`
	Description       string             `json:"description"`
	Structure         string             `json:"structure"`
	Date              *time.Time         `json:"date"`
	Venue             string             `json:"venue"`
	Cost              float64            `json:"cost"`
	RegistrationOpen  bool               `json:"registration_open"`
	Deadline          *time.Time         `json:"deadline"`
	FormFields        []models.FormField `json:"form_fields"`
	ParticipantsCount int                `json:"participants_count"`
	StartupsCount     int                `json:"startups_count"`
}

func (r CreateProgramRequest) toInput() (programservice.CreateProgramInput, error) {
	departmentID, err := id.ParseDepartmentID(r.DepartmentID)
	if err != nil {
		return programservice.CreateProgramInput{}, err
	}
	return programservice.CreateProgramInput{
		DepartmentID:      departmentID,
		Name:              r.Name,
		Description:       r.Description,
		Structure:         models.Structure(r.Structure),
		Date:              r.Date,
		Venue:             r.Venue,
		Cost:              r.Cost,
		RegistrationOpen:  r.RegistrationOpen,
		Deadline:          r.Deadline,
		FormFields:        r.FormFields,
		ParticipantsCount: r.ParticipantsCount,
		StartupsCount:     r.StartupsCount,
	}, nil
}

// CreateInstanceRequest is the JSON body of POST /programs/{programID}/instances.
type CreateInstanceRequest struct {
	CustomSuffix      string             `json:"custom_suffix"`
	Description       string             `json:"description"`
	Date              time.Time          `json:"date"`
	Venue             *string            `json:"venue"`
	Cost              *float64           `json:"cost"`
	RegistrationOpen  bool               `json:"registration_open"`
	Deadline          *time.Time         `json:"deadline"`
	FormFields        []models.FormField `json:"form_fields"`
	ParticipantsCount int                `json:"participants_count"`
	StartupsCount     int                `json:"startups_count"`
}

func (r CreateInstanceRequest) toInput(parentID id.ProgramID) programservice.CreateInstanceInput {
	return programservice.CreateInstanceInput{
		ParentID:          parentID,
		CustomSuffix:      r.CustomSuffix,
		Description:       r.Description,
		Date:              r.Date,
		Venue:             r.Venue,
		Cost:              r.Cost,
		RegistrationOpen:  r.RegistrationOpen,
		Deadline:          r.Deadline,
		FormFields:        r.FormFields,
		ParticipantsCount: r.ParticipantsCount,
		StartupsCount:     r.StartupsCount,
	}
}

// TransitionRequest is the JSON body of POST /programs/{programID}/status.
type TransitionRequest struct {
	Status string `json:"status"`
}

// CompleteRequest is the JSON body of POST /programs/{programID}/complete.
type CompleteRequest struct {
	ActualAttendance int       `json:"actual_attendance"`
	ActualStart      time.Time `json:"actual_start"`
	ActualEnd        time.Time `json:"actual_end"`
	DriveLink        string    `json:"drive_link"`
	FinalDocument    string    `json:"final_document"`
	AmountDisbursed  float64   `json:"amount_disbursed"`
	Comment          string    `json:"comment"`
}

// UpdateRequest is the JSON body of POST /programs/{programID}/updates.
type UpdateRequest struct {
	Text string `json:"text"`
}
