package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrLearnerAccessOnly ErrCode = "LEARNER_ACCESS_ONLY"
	ErrAuthorAccessOnly  ErrCode = "AUTHOR_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Paper generation ──────────────────────────────────────────────
	ErrInvalidSpec      ErrCode = "INVALID_PAPER_SPEC"
	ErrInsufficientPool ErrCode = "INSUFFICIENT_POOL"
	ErrPaperNotFound    ErrCode = "PAPER_NOT_FOUND"

	// ─── Exam sessions ─────────────────────────────────────────────────
	ErrAccessCodeInvalid  ErrCode = "ACCESS_CODE_INVALID"
	ErrInvalidTimeLimit   ErrCode = "INVALID_TIME_LIMIT"
	ErrSessionNotFound    ErrCode = "SESSION_NOT_FOUND"
	ErrSessionExpired     ErrCode = "SESSION_EXPIRED"
	ErrInvalidState       ErrCode = "INVALID_STATE"
	ErrSessionBusy        ErrCode = "SESSION_BUSY"
	ErrQuestionNotInPaper ErrCode = "QUESTION_NOT_IN_PAPER"
	ErrInvalidAnswer      ErrCode = "INVALID_ANSWER"
	ErrResultNotFound     ErrCode = "RESULT_NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrLearnerAccessOnly:
		return "Sumber daya ini terbatas untuk peserta."
	case ErrAuthorAccessOnly:
		return "Sumber daya ini terbatas untuk penyusun soal."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."

	// ─── Paper generation ──────────────────────────────────────────────
	case ErrInvalidSpec:
		return "Spesifikasi paket soal tidak valid."
	case ErrInsufficientPool:
		return "Bank soal tidak cukup untuk memenuhi spesifikasi paket soal."
	case ErrPaperNotFound:
		return "Paket soal tidak ditemukan."

	// ─── Exam sessions ─────────────────────────────────────────────────
	case ErrAccessCodeInvalid:
		return "Kode akses tidak valid atau sudah kedaluwarsa."
	case ErrInvalidTimeLimit:
		return "Batas waktu tidak valid."
	case ErrSessionNotFound:
		return "Sesi ujian tidak ditemukan."
	case ErrSessionExpired:
		return "Waktu ujian telah habis."
	case ErrInvalidState:
		return "Sesi ujian sudah dikumpulkan."
	case ErrSessionBusy:
		return "Sesi ujian sedang diproses. Silakan coba lagi."
	case ErrQuestionNotInPaper:
		return "Soal tidak termasuk dalam paket ujian ini."
	case ErrInvalidAnswer:
		return "Jawaban tidak sesuai dengan jenis soal."
	case ErrResultNotFound:
		return "Hasil ujian belum tersedia."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
