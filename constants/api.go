package constants

const (
	ConfigFileDefault = "system.json"

	ParamAuth        = "Authorization"
	ParamAccept      = "Accept"
	ParamContentType = "Content-Type"

	ParamName        = "name"
	ParamDescription = "description"
	ParamAlbum       = "album"

	ParamTitle                 = "title"
	ParamScopeType             = "scope_type"
	ParamReadPermission        = "read_permission"
	ParamAppropriatePerm       = "appropriate_permission"
	ParamDownloadPermission    = "download_permission"
	ParamWritePermission       = "write_permission"
	ParamExpirationTime        = "expiration_time"
	ParamGrantType             = "grant_type"
	ParamClientID              = "client_id"
	ParamClientSecret          = "client_secret"
	ParamUsername              = "username"
	ParamPassword              = "password"
	ScopeTypeAlbum             = "album"
	GrantTypePassword          = "password"
	GrantTypeClientCredentials = "client_credentials"

	MimeJSON        = "application/json"
	MimeForm        = "application/x-www-form-urlencoded"
	MimeDICOM       = "application/dicom"
	MimeMultipartRe = "multipart/related"

	AuthModeStatic        = "static"
	AuthModeKeycloak      = "keycloak"
	AuthModeTokenEndpoint = "token_endpoint"

	BackendMongo         = "mongo"
	BackendElasticsearch = "elasticsearch"

	DefaultMetadataDatabase   = "dicom_metadata_db"
	DefaultMetadataCollection = "metadata"
	DefaultHTTPTimeoutMs      = 10000

	FieldStudyInstanceUID = "StudyInstanceUID"
)

const (
	DefaultLockTTLSeconds = 3600
	DefaultLinkTitle      = "shared album"
)
