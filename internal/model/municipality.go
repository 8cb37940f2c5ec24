package model

// Municipality is one geometry layer served by the WFS endpoint.
type Municipality struct {
	LayerID string
	Label   string
}

// DefaultLayerID is the layer opened when none is configured.
const DefaultLayerID = "2025_082015"

var municipalities = []Municipality{
	{"2025_082015", "水戸市"}, {"2025_082023", "日立市"},
	{"2025_082031", "土浦市"}, {"2025_082040", "古河市"},
	{"2025_082058", "石岡市"}, {"2025_082074", "結城市"},
	{"2025_082082", "龍ケ崎市"}, {"2025_082104", "下妻市"},
	{"2025_082112", "常総市"}, {"2025_082121", "常陸太田市"},
	{"2025_082147", "高萩市"}, {"2025_082155", "北茨城市"},
	{"2025_082163", "笠間市"}, {"2025_082171", "取手市"},
	{"2025_082198", "牛久市"}, {"2025_082201", "つくば市"},
	{"2025_082210", "ひたちなか市"}, {"2025_082228", "鹿嶋市"},
	{"2025_082236", "潮来市"}, {"2025_082244", "守谷市"},
	{"2025_082252", "常陸大宮市"}, {"2025_082261", "那珂市"},
	{"2025_082279", "筑西市"}, {"2025_082287", "坂東市"},
	{"2025_082295", "稲敷市"}, {"2025_082309", "かすみがうら市"},
	{"2025_082317", "桜川市"}, {"2025_082325", "神栖市"},
	{"2025_082333", "行方市"}, {"2025_082341", "鉾田市"},
	{"2025_082350", "つくばみらい市"}, {"2025_082368", "小美玉市"},
	{"2025_083020", "茨城町"}, {"2025_083097", "大洗町"},
	{"2025_083101", "城里町"}, {"2025_083411", "東海村"},
	{"2025_083640", "大子町"}, {"2025_084425", "美浦村"},
	{"2025_084433", "阿見町"}, {"2025_084476", "河内町"},
	{"2025_085219", "八千代町"}, {"2025_085421", "五霞町"},
	{"2025_085464", "境町"}, {"2025_085642", "利根町"},
}

// Municipalities returns the known layers in catalog order.
func Municipalities() []Municipality {
	out := make([]Municipality, len(municipalities))
	copy(out, municipalities)
	return out
}

// LookupMunicipality finds a layer by id.
func LookupMunicipality(layerID string) (Municipality, bool) {
	for _, m := range municipalities {
		if m.LayerID == layerID {
			return m, true
		}
	}
	return Municipality{}, false
}
