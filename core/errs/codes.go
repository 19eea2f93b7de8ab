package errs

// The catalog below is the wire contract: codes are stable identifiers
// surfaced in HTTP error payloads and pub/sub dead-letter diagnostics.
// Never reuse or renumber a code; add new ones at the end of a group.
var (
	// General
	CodeNotFound = ErrorCode{"NOT_FOUND", "{0} not found for {1}."}

	// User module
	CodeUserIDEmpty                  = ErrorCode{"USER_ID_EMPTY", "User id is empty."}
	CodeUserIDInvalid                = ErrorCode{"USER_ID_INVALID", "User id is invalid."}
	CodeUserNameEmpty                = ErrorCode{"USER_NAME_EMPTY", "User name is empty."}
	CodeUserNameInvalid              = ErrorCode{"USER_NAME_INVALID", "User name is invalid."}
	CodeUserNameTooShort             = ErrorCode{"USER_NAME_TOO_SHORT", "User name is too short."}
	CodeUserNameTooLong              = ErrorCode{"USER_NAME_TOO_LONG", "User name is too long."}
	CodeUserEmailEmpty               = ErrorCode{"USER_EMAIL_EMPTY", "User email is empty."}
	CodeUserEmailInvalid             = ErrorCode{"USER_EMAIL_INVALID", "User email is invalid."}
	CodeUserCreatedAtInvalid         = ErrorCode{"USER_CREATED_AT_INVALID", "User created at field is invalid."}
	CodeUserProfilePictureURLInvalid = ErrorCode{"USER_PROFILE_PICTURE_URL_INVALID", "User profile picture url is invalid."}
	CodeUserNoUpdateFields           = ErrorCode{"USER_NO_UPDATE_FIELDS", "No fields to update."}
	CodeUserDuplicated               = ErrorCode{"USER_DUPLICATED", "User already exists."}
	CodeUserAlreadyDeleted           = ErrorCode{"USER_ALREADY_DELETED", "User already deleted."}
	CodeUserDeleted                  = ErrorCode{"USER_DELETED", "User was deleted."}
)

// Catalog returns every registered code. Used by tests to assert
// pairwise uniqueness and by operational tooling to dump the contract.
func Catalog() []ErrorCode {
	return []ErrorCode{
		CodeNotFound,
		CodeUserIDEmpty,
		CodeUserIDInvalid,
		CodeUserNameEmpty,
		CodeUserNameInvalid,
		CodeUserNameTooShort,
		CodeUserNameTooLong,
		CodeUserEmailEmpty,
		CodeUserEmailInvalid,
		CodeUserCreatedAtInvalid,
		CodeUserProfilePictureURLInvalid,
		CodeUserNoUpdateFields,
		CodeUserDuplicated,
		CodeUserAlreadyDeleted,
		CodeUserDeleted,
	}
}
