package handler

// Success response codes clients branch on.
const (
	CodeHealthy               = "SERVICE_HEALTHY"
	CodeServiceDegraded       = "SERVICE_DEGRADED"
	CodeExamCreated           = "EXAM_CREATED"
	CodeExamsFetched          = "EXAMS_FETCHED"
	CodeExamFetched           = "EXAM_FETCHED"
	CodeExamUpdated           = "EXAM_UPDATED"
	CodeQuestionCreated       = "QUESTION_CREATED"
	CodeQuestionsFetched      = "QUESTIONS_FETCHED"
	CodeQuestionDeleted       = "QUESTION_DELETED"
	CodeStudentInvited        = "STUDENT_INVITED"
	CodeRepresentativeInvited = "REPRESENTATIVE_INVITED"
	CodeExamStarted           = "EXAM_STARTED"
	CodeAnswerSaved           = "ANSWER_SAVED"
	CodeAnswerDeleted         = "ANSWER_DELETED"
	CodeExamSubmitted         = "EXAM_SUBMITTED"
	CodeSubmissionFetched     = "SUBMISSION_FETCHED"
	CodeResultsFetched        = "RESULTS_FETCHED"
	CodeResultsRecalculated   = "RESULTS_RECALCULATED"
	CodeResumptionRequested   = "RESUMPTION_REQUESTED"
	CodeResumptionApproved    = "RESUMPTION_APPROVED"
	CodeResumptionRejected    = "RESUMPTION_REJECTED"
	CodeResumptionInvalidated = "RESUMPTION_INVALIDATED"
	CodeResumptionsFetched    = "RESUMPTION_REQUESTS_FETCHED"
	CodeFormCreated           = "ADMISSION_FORM_CREATED"
	CodeFormFetched           = "ADMISSION_FORM_FETCHED"
	CodeFormUpdated           = "ADMISSION_FORM_UPDATED"
	CodePublicLinkGenerated   = "ADMISSION_LINK_GENERATED"
	CodeFormSubmitted         = "ADMISSION_FORM_SUBMITTED"
	CodeSubmissionsFetched    = "ADMISSION_SUBMISSIONS_FETCHED"
	CodeSubmissionApproved    = "ADMISSION_SUBMISSION_APPROVED"
	CodeSubmissionRejected    = "ADMISSION_SUBMISSION_REJECTED"
	CodeStatisticsFetched     = "STATISTICS_FETCHED"
	CodeLeaderboardFetched    = "LEADERBOARD_FETCHED"
	CodeMediaUploaded         = "MEDIA_UPLOADED"
	CodeActivityFetched       = "ACTIVITY_FETCHED"
)
