package logging

const (
	// FieldError can be used instead of Err(err) if you have only the error
	// message string.
	FieldError = "err"

	FieldComponent = "component"

	FieldHeight = "height"
	FieldRound  = "round"

	FieldBlockHash   = "blockHash"
	FieldBlockNumber = "blockNumber"

	FieldAuthor    = "author"
	FieldPublicKey = "publicKey"
	FieldSignature = "signature"

	FieldType  = "type"
	FieldTopic = "topic"

	FieldValidators = "validators"
	FieldContract   = "contract"
)
