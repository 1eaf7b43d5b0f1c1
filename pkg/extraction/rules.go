package extraction

import (
	"regexp"
	"strings"

	"github.com/draftforge/draftforge-engine/pkg/models"
)

// typeRule maps a keyword set to a project type. Rules are tested in order;
// the first utterance keyword hit wins.
type typeRule struct {
	projectType models.ProjectType
	keywords    []string
}

var typeRules = []typeRule{
	{models.ProjectTypeHighway, []string{"公路", "道路", "高速", "桥梁", "隧道", "road", "bridge", "tunnel", "highway"}},
	{models.ProjectTypeMunicipal, []string{"市政", "排水", "供水", "燃气", "管网", "drainage", "water supply", "gas"}},
	{models.ProjectTypeEcology, []string{"生态", "湿地", "矿山", "河道", "修复", "wetland", "mine", "river restoration"}},
}

// Name patterns, tried in order. The fourth covers bare project names that
// end in a characteristic facility suffix ("成灌高速，在四川成都").
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:项目名称|项目名|名称)[是为:：]?\s*([^，。,.\n]{2,50})`),
	regexp.MustCompile(`(?:叫做|名为|项目是)\s*([^，。,.\n]{2,50})`),
	regexp.MustCompile(`[“"]([^”"]+)[”"]`),
	regexp.MustCompile(`「([^」]+)」`),
	regexp.MustCompile(`([\p{Han}A-Za-z0-9]{1,28}?(?:高速|大桥|特大桥|隧道|水库|电站|产业园|湿地公园))`),
}

var (
	provincePattern = regexp.MustCompile(`(北京|天津|上海|重庆|河北|山西|内蒙古|辽宁|吉林|黑龙江|江苏|浙江|安徽|福建|江西|山东|河南|湖北|湖南|广东|广西|海南|四川|贵州|云南|西藏|陕西|甘肃|青海|宁夏|新疆|香港|澳门|台湾)`)
	cityPattern     = regexp.MustCompile(`(成都|广州|深圳|杭州|南京|苏州|武汉|西安|郑州|长沙|合肥|福州|厦门|昆明|贵阳|兰州|西宁|南宁|银川|乌鲁木齐|哈尔滨|长春|沈阳|大连|石家庄|太原|呼和浩特|济南|青岛|南昌|海口|拉萨|宁波)`)

	// Longer units come first so "公里" is not split into "公"+"里" partials
	// and "km" is preferred over "m".
	scalePattern = regexp.MustCompile(`(\d+(?:\.\d+)?\s*(?:公里|千米|km|平方米|万平方米|㎡|公顷|亩|米每秒|m/s|车道|米|m))`)

	investmentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(亿|万|元|千|k)`)
)

const maxNameRunes = 50

func detectType(utterance string) string {
	lower := strings.ToLower(utterance)
	for _, rule := range typeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return string(rule.projectType)
			}
		}
	}
	return ""
}

func detectName(utterance string) string {
	for _, pattern := range namePatterns {
		if m := pattern.FindStringSubmatch(utterance); m != nil {
			name := strings.TrimSpace(m[1])
			if name == "" {
				continue
			}
			runes := []rune(name)
			if len(runes) > maxNameRunes {
				name = string(runes[:maxNameRunes])
			}
			return name
		}
	}
	return ""
}

func detectLocation(utterance string) string {
	if m := provincePattern.FindStringSubmatch(utterance); m != nil {
		return m[1]
	}
	if m := cityPattern.FindStringSubmatch(utterance); m != nil {
		return m[1]
	}
	return ""
}

func detectScale(utterance string) string {
	if m := scalePattern.FindStringSubmatch(utterance); m != nil {
		return strings.Join(strings.Fields(m[1]), "")
	}
	return ""
}

func detectInvestment(utterance string) string {
	m := investmentPattern.FindStringSubmatch(utterance)
	if m == nil {
		return ""
	}
	amount, unit := m[1], m[2]
	// 亿 and 万 are self-contained amounts; anything else is denominated
	// in yuan.
	switch unit {
	case "亿", "万", "元":
		return amount + unit
	default:
		return amount + unit + "元"
	}
}
