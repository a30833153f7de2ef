package memcache

// Default port used when a server spec does not name one.
const DefaultPort = 11211

// The status of a completed request.  Values follow the binary protocol's
// status codes, so the ascii replies gomemcache surfaces map onto them.
type ResponseStatus uint16

const (
	StatusNoError ResponseStatus = iota
	StatusKeyNotFound
	StatusKeyExists
	StatusValueTooLarge
	StatusInvalidArguments
	StatusItemNotStored
	StatusIncrDecrOnNonNumericValue
)

const (
	StatusUnknownCommand ResponseStatus = 0x81 + iota
	StatusOutOfMemory
	StatusNotSupported
	StatusInternalError
	StatusBusy
	StatusTempFailure
)

type statusInfo struct {
	name    string
	message string // empty for StatusNoError
}

var statusInfos = map[ResponseStatus]statusInfo{
	StatusNoError:                   {"NoError", ""},
	StatusKeyNotFound:               {"KeyNotFound", "Key not found"},
	StatusKeyExists:                 {"KeyExists", "Key exists"},
	StatusValueTooLarge:             {"ValueTooLarge", "Value too large"},
	StatusInvalidArguments:          {"InvalidArguments", "Invalid arguments"},
	StatusItemNotStored:             {"ItemNotStored", "Item not stored"},
	StatusIncrDecrOnNonNumericValue: {"IncrDecrOnNonNumericValue", "Incr/decr on non-numeric value"},
	StatusUnknownCommand:            {"UnknownCommand", "Unknown command"},
	StatusOutOfMemory:               {"OutOfMemory", "Server out of memory"},
	StatusNotSupported:              {"NotSupported", "Not supported"},
	StatusInternalError:             {"InternalError", "Server internal error"},
	StatusBusy:                      {"Busy", "Server busy"},
	StatusTempFailure:               {"TempFailure", "Temporary server failure"},
}

func (s ResponseStatus) String() string {
	if info, ok := statusInfos[s]; ok {
		return info.name
	}
	return "Unknown"
}
