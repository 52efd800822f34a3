package service

import (
	"context"
	"testing"

	"paperflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadCreatesDraft(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)

	doc := env.upload(t, student.ID, []byte("report bytes"))

	assert.Equal(t, models.StatusDraft, doc.Status)
	assert.Equal(t, int64(len("report bytes")), doc.FileSize)
	assert.Nil(t, doc.MentorID)

	data, err := env.artifacts.Get(ctx, doc.ArtifactID)
	require.NoError(t, err)
	assert.Equal(t, []byte("report bytes"), data)
}

func TestUploadValidation(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)

	_, err := env.workflow.Upload(ctx, UploadDocumentInput{StudentID: student.ID, FileName: " ", Data: []byte("x")})
	requireAppErrorCode(t, err, "VALIDATION_ERROR")

	_, err = env.workflow.Upload(ctx, UploadDocumentInput{StudentID: student.ID, FileName: "a.pdf"})
	requireAppErrorCode(t, err, "VALIDATION_ERROR")
}

func TestForwardToMentor(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)
	other := env.seedUser(t, "Ravi", "ravi.54321@veltech.edu.in", "CSE", models.RoleStudent)
	mentor := env.seedUser(t, "Dr. Rao", "rao@veltech.edu.in", "CSE", models.RoleMentor)

	doc := env.upload(t, student.ID, []byte("pdf"))

	_, err := env.workflow.ForwardToMentor(ctx, doc.ID, other.ID, mentor.ID)
	requireAppErrorCode(t, err, "FORBIDDEN")

	_, err = env.workflow.ForwardToMentor(ctx, doc.ID, student.ID, 9999)
	requireAppErrorCode(t, err, "NOT_FOUND")

	got, err := env.workflow.ForwardToMentor(ctx, doc.ID, student.ID, mentor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusForwardedToMentor, got.Status)
	require.NotNil(t, got.MentorID)
	assert.Equal(t, mentor.ID, *got.MentorID)
	assert.NotNil(t, got.ForwardedToMentorAt)

	// A second hand-off of the same document is out of DRAFT.
	_, err = env.workflow.ForwardToMentor(ctx, doc.ID, student.ID, mentor.ID)
	requireAppErrorCode(t, err, "INVALID_STATE")
}

func TestApprovalChainThroughDean(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)
	mentor := env.seedUser(t, "Dr. Rao", "rao@veltech.edu.in", "CSE", models.RoleMentor)
	hod := env.seedUser(t, "Dr. Iyer", "iyer@veltech.edu.in", "CSE", models.RoleHod)
	dean := env.seedUser(t, "Dr. Menon", "menon@veltech.edu.in", "", models.RoleDean)

	doc := env.upload(t, student.ID, []byte("original"))
	_, err := env.workflow.ForwardToMentor(ctx, doc.ID, student.ID, mentor.ID)
	require.NoError(t, err)

	got, err := env.workflow.Approve(ctx, models.StageMentor, doc.ID, mentor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApprovedByMentor, got.Status)
	assert.NotNil(t, got.MentorActionAt)

	// The signing hook changed the bytes, so the artifact handle swapped.
	assert.NotEqual(t, doc.ArtifactID, got.ArtifactID)
	data, err := env.artifacts.Get(ctx, got.ArtifactID)
	require.NoError(t, err)
	assert.Equal(t, []byte("original|signed:mentor"), data)
	assert.Equal(t, int64(len(data)), got.FileSize)
	_, err = env.artifacts.Get(ctx, doc.ArtifactID)
	requireAppErrorCode(t, err, "NOT_FOUND")

	// mentor -> hod carries the named HOD
	got, err = env.workflow.Forward(ctx, ForwardInput{
		DocumentID: doc.ID, ActorID: mentor.ID,
		From: models.StageMentor, To: models.StageHod,
		TargetID: &hod.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusForwardedToHod, got.Status)
	require.NotNil(t, got.HodID)
	assert.Equal(t, hod.ID, *got.HodID)

	_, err = env.workflow.Approve(ctx, models.StageHod, doc.ID, hod.ID)
	require.NoError(t, err)

	got, err = env.workflow.Forward(ctx, ForwardInput{
		DocumentID: doc.ID, ActorID: hod.ID,
		From: models.StageHod, To: models.StageDean,
	})
	require.NoError(t, err)
	require.NotNil(t, got.DeanID)
	assert.Equal(t, dean.ID, *got.DeanID)

	got, err = env.workflow.Approve(ctx, models.StageDean, doc.ID, dean.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApprovedByDean, got.Status)

	// Earlier holder slots survive the whole traversal.
	require.NotNil(t, got.MentorID)
	assert.Equal(t, mentor.ID, *got.MentorID)
	assert.NotNil(t, got.MentorActionAt)
	assert.NotNil(t, got.HodActionAt)
	assert.NotNil(t, got.DeanActionAt)
}

func TestApproveGuards(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)
	mentor := env.seedUser(t, "Dr. Rao", "rao@veltech.edu.in", "CSE", models.RoleMentor)
	stranger := env.seedUser(t, "Dr. Nair", "nair@veltech.edu.in", "ECE", models.RoleMentor)

	doc := env.upload(t, student.ID, []byte("pdf"))

	_, err := env.workflow.Approve(ctx, models.StageMentor, doc.ID, mentor.ID)
	requireAppErrorCode(t, err, "INVALID_STATE")

	_, err = env.workflow.ForwardToMentor(ctx, doc.ID, student.ID, mentor.ID)
	require.NoError(t, err)

	_, err = env.workflow.Approve(ctx, models.StageMentor, doc.ID, stranger.ID)
	requireAppErrorCode(t, err, "FORBIDDEN")

	_, err = env.workflow.Approve(ctx, models.StageMentor, 9999, mentor.ID)
	requireAppErrorCode(t, err, "NOT_FOUND")
}

func TestRejectIsTerminal(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)
	mentor := env.seedUser(t, "Dr. Rao", "rao@veltech.edu.in", "CSE", models.RoleMentor)
	env.seedUser(t, "Dr. Iyer", "iyer@veltech.edu.in", "CSE", models.RoleHod)

	doc := env.upload(t, student.ID, []byte("pdf"))
	_, err := env.workflow.ForwardToMentor(ctx, doc.ID, student.ID, mentor.ID)
	require.NoError(t, err)

	_, err = env.workflow.Reject(ctx, models.StageMentor, doc.ID, mentor.ID, "   ")
	requireAppErrorCode(t, err, "VALIDATION_ERROR")

	got, err := env.workflow.Reject(ctx, models.StageMentor, doc.ID, mentor.ID, "Plagiarized sections")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejectedByMentor, got.Status)
	assert.Equal(t, "Plagiarized sections", got.RejectionReason)
	assert.NotNil(t, got.MentorActionAt)

	_, err = env.workflow.Forward(ctx, ForwardInput{
		DocumentID: doc.ID, ActorID: mentor.ID,
		From: models.StageMentor, To: models.StageHod,
	})
	requireAppErrorCode(t, err, "INVALID_STATE")

	_, err = env.workflow.Approve(ctx, models.StageMentor, doc.ID, mentor.ID)
	requireAppErrorCode(t, err, "INVALID_STATE")
}

func TestForwardTargetResolution(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)
	mentor := env.seedUser(t, "Dr. Rao", "rao@veltech.edu.in", "CSE", models.RoleMentor)

	doc := env.upload(t, student.ID, []byte("pdf"))
	_, err := env.workflow.ForwardToMentor(ctx, doc.ID, student.ID, mentor.ID)
	require.NoError(t, err)
	_, err = env.workflow.Approve(ctx, models.StageMentor, doc.ID, mentor.ID)
	require.NoError(t, err)

	// mentor -> hod never resolves by directory; the target must be named
	cseHod := env.seedUser(t, "Dr. Iyer", "iyer@veltech.edu.in", "CSE", models.RoleHod)
	_, err = env.workflow.Forward(ctx, ForwardInput{
		DocumentID: doc.ID, ActorID: mentor.ID,
		From: models.StageMentor, To: models.StageHod,
	})
	requireAppErrorCode(t, err, "VALIDATION_ERROR")

	// an explicit target without the HOD role
	notHod := env.seedUser(t, "Dr. Nair", "nair@veltech.edu.in", "CSE", models.RoleFaculty)
	_, err = env.workflow.Forward(ctx, ForwardInput{
		DocumentID: doc.ID, ActorID: mentor.ID,
		From: models.StageMentor, To: models.StageHod,
		TargetID: &notHod.ID,
	})
	requireAppErrorCode(t, err, "INVALID_TARGET")

	_, err = env.workflow.Forward(ctx, ForwardInput{
		DocumentID: doc.ID, ActorID: mentor.ID,
		From: models.StageMentor, To: models.StageHod,
		TargetID: &cseHod.ID,
	})
	require.NoError(t, err)
	_, err = env.workflow.Approve(ctx, models.StageHod, doc.ID, cseHod.ID)
	require.NoError(t, err)

	// no dean registered anywhere
	_, err = env.workflow.Forward(ctx, ForwardInput{
		DocumentID: doc.ID, ActorID: cseHod.ID,
		From: models.StageHod, To: models.StageDean,
	})
	requireAppErrorCode(t, err, "NO_SUCH_HOLDER")

	// department preference picks the CSE dean over the earlier-registered ECE one
	eceDean := env.seedUser(t, "Dr. Pillai", "pillai@veltech.edu.in", "ECE", models.RoleDean)
	cseDean := env.seedUser(t, "Dr. Menon", "menon@veltech.edu.in", "CSE", models.RoleDean)
	_ = eceDean

	got, err := env.workflow.Forward(ctx, ForwardInput{
		DocumentID: doc.ID, ActorID: cseHod.ID,
		From: models.StageHod, To: models.StageDean,
	})
	require.NoError(t, err)
	require.NotNil(t, got.DeanID)
	assert.Equal(t, cseDean.ID, *got.DeanID)
}

func TestUnsupportedEdge(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)
	mentor := env.seedUser(t, "Dr. Rao", "rao@veltech.edu.in", "CSE", models.RoleMentor)

	doc := env.upload(t, student.ID, []byte("pdf"))
	_, err := env.workflow.ForwardToMentor(ctx, doc.ID, student.ID, mentor.ID)
	require.NoError(t, err)
	_, err = env.workflow.Approve(ctx, models.StageMentor, doc.ID, mentor.ID)
	require.NoError(t, err)

	_, err = env.workflow.Forward(ctx, ForwardInput{
		DocumentID: doc.ID, ActorID: mentor.ID,
		From: models.StageMentor, To: models.StageRegistrar,
	})
	requireAppErrorCode(t, err, "VALIDATION_ERROR")
}

func TestDeanLateralRequiresExplicitTarget(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)
	mentor := env.seedUser(t, "Dr. Rao", "rao@veltech.edu.in", "CSE", models.RoleMentor)
	hod := env.seedUser(t, "Dr. Iyer", "iyer@veltech.edu.in", "CSE", models.RoleHod)
	dean1 := env.seedUser(t, "Dr. Menon", "menon@veltech.edu.in", "", models.RoleDean)
	dean2 := env.seedUser(t, "Dr. Bose", "bose@veltech.edu.in", "", models.RoleDean)

	doc := env.upload(t, student.ID, []byte("pdf"))
	_, err := env.workflow.ForwardToMentor(ctx, doc.ID, student.ID, mentor.ID)
	require.NoError(t, err)
	_, err = env.workflow.Approve(ctx, models.StageMentor, doc.ID, mentor.ID)
	require.NoError(t, err)
	_, err = env.workflow.Forward(ctx, ForwardInput{DocumentID: doc.ID, ActorID: mentor.ID, From: models.StageMentor, To: models.StageHod, TargetID: &hod.ID})
	require.NoError(t, err)
	_, err = env.workflow.Approve(ctx, models.StageHod, doc.ID, hod.ID)
	require.NoError(t, err)
	_, err = env.workflow.Forward(ctx, ForwardInput{DocumentID: doc.ID, ActorID: hod.ID, From: models.StageHod, To: models.StageDean, TargetID: &dean1.ID})
	require.NoError(t, err)

	// lateral without a named target
	_, err = env.workflow.Forward(ctx, ForwardInput{
		DocumentID: doc.ID, ActorID: dean1.ID,
		From: models.StageDean, To: models.StageDean,
	})
	requireAppErrorCode(t, err, "VALIDATION_ERROR")

	// a still-pending document can be handed to a peer dean
	got, err := env.workflow.Forward(ctx, ForwardInput{
		DocumentID: doc.ID, ActorID: dean1.ID,
		From: models.StageDean, To: models.StageDean,
		TargetID: &dean2.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusForwardedToDean, got.Status)
	require.NotNil(t, got.DeanID)
	assert.Equal(t, dean2.ID, *got.DeanID)

	// and the original dean no longer holds it
	_, err = env.workflow.Approve(ctx, models.StageDean, doc.ID, dean1.ID)
	requireAppErrorCode(t, err, "FORBIDDEN")

	_, err = env.workflow.Approve(ctx, models.StageDean, doc.ID, dean2.ID)
	require.NoError(t, err)
}

func TestExamCellDualPredecessor(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)
	mentor := env.seedUser(t, "Dr. Rao", "rao@veltech.edu.in", "CSE", models.RoleMentor)
	hod := env.seedUser(t, "Dr. Iyer", "iyer@veltech.edu.in", "CSE", models.RoleHod)
	dean := env.seedUser(t, "Dr. Menon", "menon@veltech.edu.in", "", models.RoleDean)
	coe := env.seedUser(t, "Dr. Das", "das@veltech.edu.in", "", models.RoleCoe)
	examCell := env.seedUser(t, "Mr. Shetty", "shetty@veltech.edu.in", "", models.RoleExamCell)

	advanceToDeanApproved := func(t *testing.T) *models.Document {
		doc := env.upload(t, student.ID, []byte("pdf"))
		_, err := env.workflow.ForwardToMentor(ctx, doc.ID, student.ID, mentor.ID)
		require.NoError(t, err)
		_, err = env.workflow.Approve(ctx, models.StageMentor, doc.ID, mentor.ID)
		require.NoError(t, err)
		_, err = env.workflow.Forward(ctx, ForwardInput{DocumentID: doc.ID, ActorID: mentor.ID, From: models.StageMentor, To: models.StageHod, TargetID: &hod.ID})
		require.NoError(t, err)
		_, err = env.workflow.Approve(ctx, models.StageHod, doc.ID, hod.ID)
		require.NoError(t, err)
		_, err = env.workflow.Forward(ctx, ForwardInput{DocumentID: doc.ID, ActorID: hod.ID, From: models.StageHod, To: models.StageDean})
		require.NoError(t, err)
		_, err = env.workflow.Approve(ctx, models.StageDean, doc.ID, dean.ID)
		require.NoError(t, err)
		return doc
	}

	t.Run("via coe", func(t *testing.T) {
		doc := advanceToDeanApproved(t)
		_, err := env.workflow.Forward(ctx, ForwardInput{DocumentID: doc.ID, ActorID: dean.ID, From: models.StageDean, To: models.StageCoe})
		require.NoError(t, err)
		_, err = env.workflow.Approve(ctx, models.StageCoe, doc.ID, coe.ID)
		require.NoError(t, err)

		got, err := env.workflow.Forward(ctx, ForwardInput{DocumentID: doc.ID, ActorID: coe.ID, From: models.StageCoe, To: models.StageExamCell})
		require.NoError(t, err)
		assert.Equal(t, models.StatusForwardedToExamCell, got.Status)
		require.NotNil(t, got.ExamCellID)
		assert.Equal(t, examCell.ID, *got.ExamCellID)
	})

	t.Run("via dean academics", func(t *testing.T) {
		deanAcad := env.seedUser(t, "Dr. Kurup", "kurup@veltech.edu.in", "", models.RoleDeanAcademics)
		doc := advanceToDeanApproved(t)
		_, err := env.workflow.Forward(ctx, ForwardInput{DocumentID: doc.ID, ActorID: dean.ID, From: models.StageDean, To: models.StageDeanAcademics})
		require.NoError(t, err)
		_, err = env.workflow.Approve(ctx, models.StageDeanAcademics, doc.ID, deanAcad.ID)
		require.NoError(t, err)

		got, err := env.workflow.Forward(ctx, ForwardInput{DocumentID: doc.ID, ActorID: deanAcad.ID, From: models.StageDeanAcademics, To: models.StageExamCell})
		require.NoError(t, err)
		assert.Equal(t, models.StatusForwardedToExamCell, got.Status)

		_, err = env.workflow.Approve(ctx, models.StageExamCell, doc.ID, examCell.ID)
		require.NoError(t, err)
	})
}

func TestIndustryRelationsLaterals(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)
	mentor := env.seedUser(t, "Dr. Rao", "rao@veltech.edu.in", "CSE", models.RoleMentor)
	hod := env.seedUser(t, "Dr. Iyer", "iyer@veltech.edu.in", "CSE", models.RoleHod)
	dean := env.seedUser(t, "Dr. Menon", "menon@veltech.edu.in", "", models.RoleDean)
	ir := env.seedUser(t, "Dr. Kulkarni", "kulkarni@veltech.edu.in", "", models.RoleIndustryRelations)
	rnd := env.seedUser(t, "Dr. Sen", "sen@veltech.edu.in", "", models.RoleRnd)

	doc := env.upload(t, student.ID, []byte("pdf"))
	_, err := env.workflow.ForwardToMentor(ctx, doc.ID, student.ID, mentor.ID)
	require.NoError(t, err)
	_, err = env.workflow.Approve(ctx, models.StageMentor, doc.ID, mentor.ID)
	require.NoError(t, err)
	_, err = env.workflow.Forward(ctx, ForwardInput{DocumentID: doc.ID, ActorID: mentor.ID, From: models.StageMentor, To: models.StageHod, TargetID: &hod.ID})
	require.NoError(t, err)
	_, err = env.workflow.Approve(ctx, models.StageHod, doc.ID, hod.ID)
	require.NoError(t, err)
	_, err = env.workflow.Forward(ctx, ForwardInput{DocumentID: doc.ID, ActorID: hod.ID, From: models.StageHod, To: models.StageDean})
	require.NoError(t, err)
	_, err = env.workflow.Approve(ctx, models.StageDean, doc.ID, dean.ID)
	require.NoError(t, err)
	_, err = env.workflow.Forward(ctx, ForwardInput{DocumentID: doc.ID, ActorID: dean.ID, From: models.StageDean, To: models.StageIndustryRelations})
	require.NoError(t, err)
	_, err = env.workflow.Approve(ctx, models.StageIndustryRelations, doc.ID, ir.ID)
	require.NoError(t, err)

	// industry relations cannot route to the registrar directly
	_, err = env.workflow.Forward(ctx, ForwardInput{DocumentID: doc.ID, ActorID: ir.ID, From: models.StageIndustryRelations, To: models.StageRegistrar})
	requireAppErrorCode(t, err, "VALIDATION_ERROR")

	got, err := env.workflow.Forward(ctx, ForwardInput{DocumentID: doc.ID, ActorID: ir.ID, From: models.StageIndustryRelations, To: models.StageRnd})
	require.NoError(t, err)
	assert.Equal(t, models.StatusForwardedToRnd, got.Status)
	require.NotNil(t, got.RndID)
	assert.Equal(t, rnd.ID, *got.RndID)
}

func TestApproveConflictOnConcurrentTransition(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)
	mentor := env.seedUser(t, "Dr. Rao", "rao@veltech.edu.in", "CSE", models.RoleMentor)

	doc := env.upload(t, student.ID, []byte("pdf"))
	_, err := env.workflow.ForwardToMentor(ctx, doc.ID, student.ID, mentor.ID)
	require.NoError(t, err)

	// The signing hook races a concurrent writer that bumps the row version
	// between the engine's load and its store.
	env.signer.fn = func(ctx context.Context, d *models.Document, data []byte, _ *models.User, _ models.Stage) ([]byte, error) {
		stale, err := env.docs.GetByID(ctx, d.ID)
		require.NoError(t, err)
		stale.Description = "touched concurrently"
		require.NoError(t, env.docs.Update(ctx, stale))
		return data, nil
	}

	_, err = env.workflow.Approve(ctx, models.StageMentor, doc.ID, mentor.ID)
	requireAppErrorCode(t, err, "CONFLICT")

	// The stored document kept the concurrent writer's state.
	stored, err := env.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusForwardedToMentor, stored.Status)
	assert.Equal(t, "touched concurrently", stored.Description)
}

func TestDeleteDraft(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)
	other := env.seedUser(t, "Ravi", "ravi.54321@veltech.edu.in", "CSE", models.RoleStudent)
	mentor := env.seedUser(t, "Dr. Rao", "rao@veltech.edu.in", "CSE", models.RoleMentor)

	doc := env.upload(t, student.ID, []byte("pdf"))

	requireAppErrorCode(t, env.workflow.DeleteDraft(ctx, doc.ID, other.ID), "FORBIDDEN")

	require.NoError(t, env.workflow.DeleteDraft(ctx, doc.ID, student.ID))
	_, err := env.docs.GetByID(ctx, doc.ID)
	requireAppErrorCode(t, err, "NOT_FOUND")
	_, err = env.artifacts.Get(ctx, doc.ArtifactID)
	requireAppErrorCode(t, err, "NOT_FOUND")

	forwarded := env.upload(t, student.ID, []byte("pdf"))
	_, err = env.workflow.ForwardToMentor(ctx, forwarded.ID, student.ID, mentor.ID)
	require.NoError(t, err)
	requireAppErrorCode(t, env.workflow.DeleteDraft(ctx, forwarded.ID, student.ID), "INVALID_STATE")
}

func TestDownloadPermissions(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)
	other := env.seedUser(t, "Ravi", "ravi.54321@veltech.edu.in", "CSE", models.RoleStudent)
	mentor := env.seedUser(t, "Dr. Rao", "rao@veltech.edu.in", "CSE", models.RoleMentor)

	doc := env.upload(t, student.ID, []byte("pdf bytes"))
	_, err := env.workflow.ForwardToMentor(ctx, doc.ID, student.ID, mentor.ID)
	require.NoError(t, err)

	_, data, err := env.workflow.Download(ctx, doc.ID, student.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), data)

	_, _, err = env.workflow.Download(ctx, doc.ID, other.ID, nil)
	requireAppErrorCode(t, err, "FORBIDDEN")

	stage := models.StageMentor
	_, data, err = env.workflow.Download(ctx, doc.ID, mentor.ID, &stage)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), data)

	_, _, err = env.workflow.Download(ctx, doc.ID, other.ID, &stage)
	requireAppErrorCode(t, err, "FORBIDDEN")
}

func TestHolderQueues(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)
	mentor := env.seedUser(t, "Dr. Rao", "rao@veltech.edu.in", "CSE", models.RoleMentor)

	first := env.upload(t, student.ID, []byte("one"))
	second := env.upload(t, student.ID, []byte("two"))
	_, err := env.workflow.ForwardToMentor(ctx, first.ID, student.ID, mentor.ID)
	require.NoError(t, err)
	_, err = env.workflow.ForwardToMentor(ctx, second.ID, student.ID, mentor.ID)
	require.NoError(t, err)
	_, err = env.workflow.Approve(ctx, models.StageMentor, first.ID, mentor.ID)
	require.NoError(t, err)

	pending, err := env.workflow.PendingForHolder(ctx, models.StageMentor, mentor.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	all, err := env.workflow.AllForHolder(ctx, models.StageMentor, mentor.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := env.workflow.DocumentsForStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestStatistics(t *testing.T) {
	t.Parallel()
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.seedUser(t, "Asha", "asha.12345@veltech.edu.in", "CSE", models.RoleStudent)
	mentor := env.seedUser(t, "Dr. Rao", "rao@veltech.edu.in", "CSE", models.RoleMentor)
	env.seedUser(t, "Dr. Iyer", "iyer@veltech.edu.in", "CSE", models.RoleHod)

	pending := env.upload(t, student.ID, []byte("one"))
	rejected := env.upload(t, student.ID, []byte("two"))
	env.upload(t, student.ID, []byte("three"))
	_, err := env.workflow.ForwardToMentor(ctx, pending.ID, student.ID, mentor.ID)
	require.NoError(t, err)
	_, err = env.workflow.ForwardToMentor(ctx, rejected.ID, student.ID, mentor.ID)
	require.NoError(t, err)
	_, err = env.workflow.Reject(ctx, models.StageMentor, rejected.ID, mentor.ID, "incomplete")
	require.NoError(t, err)

	stats, err := env.workflow.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.Students)
	assert.Equal(t, int64(1), stats.Hods)
	assert.Equal(t, int64(0), stats.Deans)
	assert.Equal(t, int64(3), stats.TotalDocuments)
	assert.Equal(t, int64(1), stats.PendingApprovals)
	assert.Equal(t, int64(1), stats.Rejected)
}
