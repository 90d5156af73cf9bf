package entities

// Tag names a field in a package header
type Tag string

// Header tags consumed by inspections
const (
	TagName    Tag = "name"
	TagVersion Tag = "version"
	TagRelease Tag = "release"
	TagArch    Tag = "arch"
	TagSource  Tag = "source"

	TagPreTrans         Tag = "pretrans"
	TagPreTransProg     Tag = "pretransprog"
	TagPreIn            Tag = "prein"
	TagPreInProg        Tag = "preinprog"
	TagPostIn           Tag = "postin"
	TagPostInProg       Tag = "postinprog"
	TagPreUn            Tag = "preun"
	TagPreUnProg        Tag = "preunprog"
	TagPostUn           Tag = "postun"
	TagPostUnProg       Tag = "postunprog"
	TagPostTrans        Tag = "posttrans"
	TagPostTransProg    Tag = "posttransprog"
	TagVerifyScript     Tag = "verifyscript"
	TagVerifyScriptProg Tag = "verifyscriptprog"
)

// ScriptletHook describes one package manager lifecycle hook
type ScriptletHook struct {
	Name     string // spec file section, e.g. "%post"
	BodyTag  Tag
	InterTag Tag
}

// ScriptletHooks lists every lifecycle hook in execution order
var ScriptletHooks = []ScriptletHook{
	{Name: "%pretrans", BodyTag: TagPreTrans, InterTag: TagPreTransProg},
	{Name: "%pre", BodyTag: TagPreIn, InterTag: TagPreInProg},
	{Name: "%post", BodyTag: TagPostIn, InterTag: TagPostInProg},
	{Name: "%preun", BodyTag: TagPreUn, InterTag: TagPreUnProg},
	{Name: "%postun", BodyTag: TagPostUn, InterTag: TagPostUnProg},
	{Name: "%posttrans", BodyTag: TagPostTrans, InterTag: TagPostTransProg},
	{Name: "%verifyscript", BodyTag: TagVerifyScript, InterTag: TagVerifyScriptProg},
}

// ScriptletRecord is the interpreter and body of one lifecycle hook
type ScriptletRecord struct {
	Hook        ScriptletHook
	Interpreter string
	Body        string
}
