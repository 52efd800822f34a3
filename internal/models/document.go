package models

import (
	"time"
)

// DocumentStatus tracks where a document sits in the approval chain.
type DocumentStatus string

const (
	StatusDraft DocumentStatus = "DRAFT"

	StatusForwardedToMentor DocumentStatus = "FORWARDED_TO_MENTOR"
	StatusApprovedByMentor  DocumentStatus = "APPROVED_BY_MENTOR"
	StatusRejectedByMentor  DocumentStatus = "REJECTED_BY_MENTOR"

	StatusForwardedToHod DocumentStatus = "FORWARDED_TO_HOD"
	StatusApprovedByHod  DocumentStatus = "APPROVED_BY_HOD"
	StatusRejectedByHod  DocumentStatus = "REJECTED_BY_HOD"

	StatusForwardedToDean DocumentStatus = "FORWARDED_TO_DEAN"
	StatusApprovedByDean  DocumentStatus = "APPROVED_BY_DEAN"
	StatusRejectedByDean  DocumentStatus = "REJECTED_BY_DEAN"

	StatusForwardedToDeanAcademics DocumentStatus = "FORWARDED_TO_DEAN_ACADEMICS"
	StatusApprovedByDeanAcademics  DocumentStatus = "APPROVED_BY_DEAN_ACADEMICS"
	StatusRejectedByDeanAcademics  DocumentStatus = "REJECTED_BY_DEAN_ACADEMICS"

	StatusForwardedToRegistrar DocumentStatus = "FORWARDED_TO_REGISTRAR"
	StatusApprovedByRegistrar  DocumentStatus = "APPROVED_BY_REGISTRAR"
	StatusRejectedByRegistrar  DocumentStatus = "REJECTED_BY_REGISTRAR"

	StatusForwardedToCoe DocumentStatus = "FORWARDED_TO_COE"
	StatusApprovedByCoe  DocumentStatus = "APPROVED_BY_COE"
	StatusRejectedByCoe  DocumentStatus = "REJECTED_BY_COE"

	StatusForwardedToRnd DocumentStatus = "FORWARDED_TO_RND"
	StatusApprovedByRnd  DocumentStatus = "APPROVED_BY_RND"
	StatusRejectedByRnd  DocumentStatus = "REJECTED_BY_RND"

	StatusForwardedToIndustryRelations DocumentStatus = "FORWARDED_TO_INDUSTRY_RELATIONS"
	StatusApprovedByIndustryRelations  DocumentStatus = "APPROVED_BY_INDUSTRY_RELATIONS"
	StatusRejectedByIndustryRelations  DocumentStatus = "REJECTED_BY_INDUSTRY_RELATIONS"

	StatusForwardedToExamCell DocumentStatus = "FORWARDED_TO_EXAM_CELL"
	StatusApprovedByExamCell  DocumentStatus = "APPROVED_BY_EXAM_CELL"
	StatusRejectedByExamCell  DocumentStatus = "REJECTED_BY_EXAM_CELL"
)

// IsRejected reports whether the status is one of the terminal rejections.
func (s DocumentStatus) IsRejected() bool {
	for _, stage := range Stages {
		if s == stage.RejectedStatus() {
			return true
		}
	}
	return false
}

// Stage is one approval hop in the chain. Each stage owns a holder slot and
// a forwarded/action timestamp pair on the document.
type Stage string

const (
	StageMentor            Stage = "mentor"
	StageHod               Stage = "hod"
	StageDean              Stage = "dean"
	StageDeanAcademics     Stage = "dean-academics"
	StageRegistrar         Stage = "registrar"
	StageCoe               Stage = "coe"
	StageRnd               Stage = "rnd"
	StageIndustryRelations Stage = "industry-relations"
	StageExamCell          Stage = "exam-cell"
)

// Stages lists every approval stage in canonical chain order.
var Stages = []Stage{
	StageMentor,
	StageHod,
	StageDean,
	StageDeanAcademics,
	StageRegistrar,
	StageCoe,
	StageRnd,
	StageIndustryRelations,
	StageExamCell,
}

type stageInfo struct {
	role         Role
	label        string
	holderColumn string
	forwardedCol string
	forwarded    DocumentStatus
	approved     DocumentStatus
	rejected     DocumentStatus
}

var stageTable = map[Stage]stageInfo{
	StageMentor: {
		role: RoleMentor, label: "MENTOR",
		holderColumn: "mentor_id", forwardedCol: "forwarded_to_mentor_at",
		forwarded: StatusForwardedToMentor, approved: StatusApprovedByMentor, rejected: StatusRejectedByMentor,
	},
	StageHod: {
		role: RoleHod, label: "HOD",
		holderColumn: "hod_id", forwardedCol: "forwarded_to_hod_at",
		forwarded: StatusForwardedToHod, approved: StatusApprovedByHod, rejected: StatusRejectedByHod,
	},
	StageDean: {
		role: RoleDean, label: "DEAN",
		holderColumn: "dean_id", forwardedCol: "forwarded_to_dean_at",
		forwarded: StatusForwardedToDean, approved: StatusApprovedByDean, rejected: StatusRejectedByDean,
	},
	StageDeanAcademics: {
		role: RoleDeanAcademics, label: "DEAN ACADEMICS",
		holderColumn: "dean_academics_id", forwardedCol: "forwarded_to_dean_academics_at",
		forwarded: StatusForwardedToDeanAcademics, approved: StatusApprovedByDeanAcademics, rejected: StatusRejectedByDeanAcademics,
	},
	StageRegistrar: {
		role: RoleRegistrar, label: "REGISTRAR",
		holderColumn: "registrar_id", forwardedCol: "forwarded_to_registrar_at",
		forwarded: StatusForwardedToRegistrar, approved: StatusApprovedByRegistrar, rejected: StatusRejectedByRegistrar,
	},
	StageCoe: {
		role: RoleCoe, label: "COE",
		holderColumn: "coe_id", forwardedCol: "forwarded_to_coe_at",
		forwarded: StatusForwardedToCoe, approved: StatusApprovedByCoe, rejected: StatusRejectedByCoe,
	},
	StageRnd: {
		role: RoleRnd, label: "R&D",
		holderColumn: "rnd_id", forwardedCol: "forwarded_to_rnd_at",
		forwarded: StatusForwardedToRnd, approved: StatusApprovedByRnd, rejected: StatusRejectedByRnd,
	},
	StageIndustryRelations: {
		role: RoleIndustryRelations, label: "INDUSTRY RELATIONS",
		holderColumn: "industry_relations_id", forwardedCol: "forwarded_to_industry_relations_at",
		forwarded: StatusForwardedToIndustryRelations, approved: StatusApprovedByIndustryRelations, rejected: StatusRejectedByIndustryRelations,
	},
	StageExamCell: {
		role: RoleExamCell, label: "EXAM CELL",
		holderColumn: "exam_cell_id", forwardedCol: "forwarded_to_exam_cell_at",
		forwarded: StatusForwardedToExamCell, approved: StatusApprovedByExamCell, rejected: StatusRejectedByExamCell,
	},
}

// Role is the role a user must carry to hold documents at this stage.
func (s Stage) Role() Role { return stageTable[s].role }

// Label is the human-readable stage name stamped into signed PDFs.
func (s Stage) Label() string { return stageTable[s].label }

// HolderColumn is the database column of the stage's holder slot.
func (s Stage) HolderColumn() string { return stageTable[s].holderColumn }

// ForwardedAtColumn is the database column of the stage's forward timestamp.
func (s Stage) ForwardedAtColumn() string { return stageTable[s].forwardedCol }

func (s Stage) ForwardedStatus() DocumentStatus { return stageTable[s].forwarded }
func (s Stage) ApprovedStatus() DocumentStatus  { return stageTable[s].approved }
func (s Stage) RejectedStatus() DocumentStatus  { return stageTable[s].rejected }

// Document is a student-submitted artifact moving through the approval chain.
type Document struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	FileName    string `gorm:"not null" json:"file_name"`
	FileType    string `gorm:"not null" json:"file_type"`
	FileSize    int64  `gorm:"not null" json:"file_size"`
	Description string `gorm:"size:1000" json:"description"`

	// ArtifactID is the opaque handle of the stored bytes. Replaced on
	// approval when the signing hook rewrites the PDF.
	ArtifactID string `gorm:"size:36;not null" json:"-"`

	StudentID uint  `gorm:"not null;index" json:"student_id"`
	Student   *User `gorm:"foreignKey:StudentID" json:"student,omitempty"`

	MentorID            *uint `gorm:"index" json:"mentor_id,omitempty"`
	Mentor              *User `gorm:"foreignKey:MentorID" json:"mentor,omitempty"`
	HodID               *uint `gorm:"index" json:"hod_id,omitempty"`
	Hod                 *User `gorm:"foreignKey:HodID" json:"hod,omitempty"`
	DeanID              *uint `gorm:"index" json:"dean_id,omitempty"`
	Dean                *User `gorm:"foreignKey:DeanID" json:"dean,omitempty"`
	DeanAcademicsID     *uint `gorm:"index" json:"dean_academics_id,omitempty"`
	DeanAcademics       *User `gorm:"foreignKey:DeanAcademicsID" json:"dean_academics,omitempty"`
	RegistrarID         *uint `gorm:"index" json:"registrar_id,omitempty"`
	Registrar           *User `gorm:"foreignKey:RegistrarID" json:"registrar,omitempty"`
	CoeID               *uint `gorm:"index" json:"coe_id,omitempty"`
	Coe                 *User `gorm:"foreignKey:CoeID" json:"coe,omitempty"`
	RndID               *uint `gorm:"index" json:"rnd_id,omitempty"`
	Rnd                 *User `gorm:"foreignKey:RndID" json:"rnd,omitempty"`
	IndustryRelationsID *uint `gorm:"index" json:"industry_relations_id,omitempty"`
	IndustryRelations   *User `gorm:"foreignKey:IndustryRelationsID" json:"industry_relations,omitempty"`
	ExamCellID          *uint `gorm:"index" json:"exam_cell_id,omitempty"`
	ExamCell            *User `gorm:"foreignKey:ExamCellID" json:"exam_cell,omitempty"`

	Status          DocumentStatus `gorm:"size:64;not null;default:DRAFT;index" json:"status"`
	RejectionReason string         `gorm:"size:1000" json:"rejection_reason,omitempty"`

	// Version is bumped on every persisted transition. A stale write loses
	// the optimistic check and surfaces as CONFLICT.
	Version uint `gorm:"not null;default:0" json:"version"`

	UploadedAt time.Time `json:"uploaded_at"`

	ForwardedToMentorAt            *time.Time `json:"forwarded_to_mentor_at,omitempty"`
	MentorActionAt                 *time.Time `json:"mentor_action_at,omitempty"`
	ForwardedToHodAt               *time.Time `json:"forwarded_to_hod_at,omitempty"`
	HodActionAt                    *time.Time `json:"hod_action_at,omitempty"`
	ForwardedToDeanAt              *time.Time `json:"forwarded_to_dean_at,omitempty"`
	DeanActionAt                   *time.Time `json:"dean_action_at,omitempty"`
	ForwardedToDeanAcademicsAt     *time.Time `json:"forwarded_to_dean_academics_at,omitempty"`
	DeanAcademicsActionAt          *time.Time `json:"dean_academics_action_at,omitempty"`
	ForwardedToRegistrarAt         *time.Time `json:"forwarded_to_registrar_at,omitempty"`
	RegistrarActionAt              *time.Time `json:"registrar_action_at,omitempty"`
	ForwardedToCoeAt               *time.Time `json:"forwarded_to_coe_at,omitempty"`
	CoeActionAt                    *time.Time `json:"coe_action_at,omitempty"`
	ForwardedToRndAt               *time.Time `json:"forwarded_to_rnd_at,omitempty"`
	RndActionAt                    *time.Time `json:"rnd_action_at,omitempty"`
	ForwardedToIndustryRelationsAt *time.Time `json:"forwarded_to_industry_relations_at,omitempty"`
	IndustryRelationsActionAt      *time.Time `json:"industry_relations_action_at,omitempty"`
	ForwardedToExamCellAt          *time.Time `json:"forwarded_to_exam_cell_at,omitempty"`
	ExamCellActionAt               *time.Time `json:"exam_cell_action_at,omitempty"`
}

// Holder returns the user ID occupying the stage's holder slot, or nil.
func (d *Document) Holder(stage Stage) *uint {
	switch stage {
	case StageMentor:
		return d.MentorID
	case StageHod:
		return d.HodID
	case StageDean:
		return d.DeanID
	case StageDeanAcademics:
		return d.DeanAcademicsID
	case StageRegistrar:
		return d.RegistrarID
	case StageCoe:
		return d.CoeID
	case StageRnd:
		return d.RndID
	case StageIndustryRelations:
		return d.IndustryRelationsID
	case StageExamCell:
		return d.ExamCellID
	}
	return nil
}

// SetHolder occupies the stage's holder slot.
func (d *Document) SetHolder(stage Stage, userID uint) {
	id := userID
	switch stage {
	case StageMentor:
		d.MentorID = &id
	case StageHod:
		d.HodID = &id
	case StageDean:
		d.DeanID = &id
	case StageDeanAcademics:
		d.DeanAcademicsID = &id
	case StageRegistrar:
		d.RegistrarID = &id
	case StageCoe:
		d.CoeID = &id
	case StageRnd:
		d.RndID = &id
	case StageIndustryRelations:
		d.IndustryRelationsID = &id
	case StageExamCell:
		d.ExamCellID = &id
	}
}

// HeldBy reports whether the given user currently occupies the stage's slot.
func (d *Document) HeldBy(stage Stage, userID uint) bool {
	holder := d.Holder(stage)
	return holder != nil && *holder == userID
}

// StampForwarded records when the document entered the stage.
func (d *Document) StampForwarded(stage Stage, t time.Time) {
	ts := t
	switch stage {
	case StageMentor:
		d.ForwardedToMentorAt = &ts
	case StageHod:
		d.ForwardedToHodAt = &ts
	case StageDean:
		d.ForwardedToDeanAt = &ts
	case StageDeanAcademics:
		d.ForwardedToDeanAcademicsAt = &ts
	case StageRegistrar:
		d.ForwardedToRegistrarAt = &ts
	case StageCoe:
		d.ForwardedToCoeAt = &ts
	case StageRnd:
		d.ForwardedToRndAt = &ts
	case StageIndustryRelations:
		d.ForwardedToIndustryRelationsAt = &ts
	case StageExamCell:
		d.ForwardedToExamCellAt = &ts
	}
}

// StampAction records when the stage holder approved or rejected.
func (d *Document) StampAction(stage Stage, t time.Time) {
	ts := t
	switch stage {
	case StageMentor:
		d.MentorActionAt = &ts
	case StageHod:
		d.HodActionAt = &ts
	case StageDean:
		d.DeanActionAt = &ts
	case StageDeanAcademics:
		d.DeanAcademicsActionAt = &ts
	case StageRegistrar:
		d.RegistrarActionAt = &ts
	case StageCoe:
		d.CoeActionAt = &ts
	case StageRnd:
		d.RndActionAt = &ts
	case StageIndustryRelations:
		d.IndustryRelationsActionAt = &ts
	case StageExamCell:
		d.ExamCellActionAt = &ts
	}
}
