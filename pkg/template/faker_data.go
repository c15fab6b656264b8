package template

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// =============================================================================
// Faker data: People (en_US)
// =============================================================================

var enFirstNames = []string{
	"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda",
	"David", "Elizabeth", "William", "Barbara", "Richard", "Susan", "Joseph", "Jessica",
	"Thomas", "Sarah", "Christopher", "Karen", "Daniel", "Lisa", "Matthew", "Nancy",
	"Anthony", "Betty", "Mark", "Sandra", "Steven", "Ashley", "Andrew", "Emily",
}

var enLastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
	"Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson", "Thomas",
	"Taylor", "Moore", "Jackson", "Martin", "Lee", "Perez", "Thompson", "White",
	"Harris", "Sanchez", "Clark", "Ramirez", "Lewis", "Robinson", "Walker", "Young",
}

var enCompanySuffixes = []string{"Inc", "LLC", "Ltd", "Group", "PLC", "and Sons"}

var enStreetSuffixes = []string{
	"Street", "Avenue", "Road", "Lane", "Drive", "Court", "Place", "Way", "Boulevard", "Terrace",
}

var enCities = []string{
	"Springfield", "Riverside", "Fairview", "Franklin", "Greenville", "Bristol",
	"Clinton", "Georgetown", "Salem", "Madison", "Arlington", "Ashland",
}

var enStates = []string{
	"AL", "AK", "AZ", "CA", "CO", "CT", "FL", "GA", "IL", "MA", "NY", "OR", "TX", "WA",
}

var enCountries = []string{
	"United States", "Canada", "United Kingdom", "Germany", "France", "Japan",
	"Australia", "Brazil", "India", "Mexico", "Spain", "Italy", "Netherlands", "Sweden",
}

// =============================================================================
// Faker data: People (zh_CN)
// =============================================================================

var zhLastNames = []string{
	"王", "李", "张", "刘", "陈", "杨", "黄", "赵", "吴", "周",
	"徐", "孙", "马", "朱", "胡", "郭", "何", "高", "林", "罗",
}

var zhFirstNames = []string{
	"伟", "芳", "娜", "秀英", "敏", "静", "丽", "强", "磊", "军",
	"洋", "勇", "艳", "杰", "娟", "涛", "明", "超", "秀兰", "霞",
}

var zhCities = []string{
	"北京", "上海", "广州", "深圳", "杭州", "南京", "成都", "武汉", "西安", "重庆",
}

var zhDistricts = []string{"朝阳", "海淀", "浦东", "天河", "西湖", "武侯", "江汉", "雁塔"}

var zhStreetSuffixes = []string{"路", "街", "大道"}

var zhCompanyCores = []string{"华为", "腾讯", "阿里", "百度", "京东", "网易", "小米", "美团"}

var zhCompanySuffixes = []string{"科技有限公司", "网络有限公司", "信息有限公司", "传媒有限公司"}

var zhPhonePrefixes = []string{"130", "131", "135", "138", "139", "150", "156", "186", "188"}

// =============================================================================
// Faker data: Text
// =============================================================================

var loremWords = []string{
	"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing", "elit",
	"sed", "do", "eiusmod", "tempor", "incididunt", "ut", "labore", "et", "dolore",
	"magna", "aliqua", "enim", "ad", "minim", "veniam", "quis", "nostrud",
	"exercitation", "ullamco", "laboris", "nisi", "aliquip", "ex", "ea", "commodo",
	"consequat", "duis", "aute", "irure", "in", "reprehenderit", "voluptate",
	"velit", "esse", "cillum", "fugiat", "nulla", "pariatur", "excepteur", "sint",
}

var freeEmailDomains = []string{"gmail.com", "yahoo.com", "hotmail.com", "example.com", "example.org"}

var topLevelDomains = []string{"com", "net", "org", "info", "biz"}

// =============================================================================
// Faker data: Internet
// =============================================================================

// fakerUserAgents contains realistic browser user agent strings.
var fakerUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (iPad; CPU OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
}

// =============================================================================
// Faker data: Finance
// =============================================================================

// fakerCurrencyCodes contains ISO 4217 currency codes.
var fakerCurrencyCodes = []string{
	"USD", "EUR", "GBP", "JPY", "AUD", "CAD", "CHF", "CNY",
	"SEK", "NZD", "MXN", "SGD", "HKD", "NOK", "KRW", "TRY",
	"INR", "RUB", "BRL", "ZAR",
}

// fakerIBANPrefix defines country code, total IBAN length, and a sample bank code.
type fakerIBANPrefix struct {
	country    string
	length     int
	bankPrefix string
}

// fakerIBANPrefixes contains simplified IBAN country definitions.
var fakerIBANPrefixes = []fakerIBANPrefix{
	{"GB", 22, "WEST"},
	{"DE", 22, "DEUT"},
	{"FR", 27, "BNPA"},
	{"ES", 24, "BBVA"},
	{"IT", 27, "UCRI"},
	{"NL", 18, "ABNA"},
}

// =============================================================================
// Faker data: Commerce
// =============================================================================

// fakerProductAdjectives contains adjectives for product name generation.
var fakerProductAdjectives = []string{
	"Rustic", "Elegant", "Handcrafted", "Refined", "Sleek",
	"Gorgeous", "Practical", "Modern", "Vintage", "Premium",
	"Luxurious", "Compact", "Ergonomic", "Lightweight", "Durable",
}

// fakerProductMaterials contains material names for product name generation.
var fakerProductMaterials = []string{
	"Steel", "Wooden", "Granite", "Rubber", "Cotton",
	"Silk", "Leather", "Bamboo", "Bronze", "Copper",
	"Ceramic", "Plastic", "Glass", "Marble", "Titanium",
}

// fakerProductNouns contains product nouns for product name generation.
var fakerProductNouns = []string{
	"Chair", "Table", "Lamp", "Keyboard", "Mouse",
	"Backpack", "Watch", "Wallet", "Headphones", "Speaker",
	"Notebook", "Pen", "Mug", "Bottle", "Gloves",
}

// fakerColors contains color names.
var fakerColors = []string{
	"Crimson", "Azure", "Emerald", "Ivory", "Coral",
	"Indigo", "Amber", "Jade", "Scarlet", "Turquoise",
	"Lavender", "Maroon", "Teal", "Orchid", "Cyan",
	"Magenta", "Gold", "Silver", "Pearl", "Sapphire",
}

// =============================================================================
// Faker data: Identity
// =============================================================================

// fakerJobLevels contains seniority levels for job title generation.
var fakerJobLevels = []string{
	"Senior", "Junior", "Lead", "Principal", "Staff",
}

// fakerJobFields contains domain fields for job title generation.
var fakerJobFields = []string{
	"Software", "Data", "Product", "Marketing", "Sales",
	"Operations", "Security", "Infrastructure", "Quality", "Research",
}

// fakerJobRoles contains role titles for job title generation.
var fakerJobRoles = []string{
	"Engineer", "Analyst", "Manager", "Designer", "Architect",
	"Consultant", "Developer", "Specialist", "Coordinator", "Strategist",
}

// =============================================================================
// Faker data: Data/Files
// =============================================================================

// fakerMIMETypes contains common MIME type strings.
var fakerMIMETypes = []string{
	"application/json", "application/xml", "application/pdf",
	"application/zip", "application/gzip", "application/octet-stream",
	"text/html", "text/plain", "text/css", "text/csv",
	"image/png", "image/jpeg", "image/gif", "image/svg+xml", "image/webp",
	"audio/mpeg", "audio/wav", "audio/ogg",
	"video/mp4", "video/webm",
	"multipart/form-data",
}

// fakerFileExtensions contains common file extensions (without leading dot).
var fakerFileExtensions = []string{
	"pdf", "jpg", "png", "gif", "doc", "docx",
	"xls", "xlsx", "csv", "txt", "html", "css",
	"js", "json", "xml", "zip", "tar", "gz",
	"mp3", "mp4", "wav", "avi", "mov", "svg",
	"ppt", "pptx", "md", "yaml", "toml", "log",
}

// =============================================================================
// Generators
// =============================================================================

func fakerIPv4(r *rand.Rand) string {
	return fmt.Sprintf("%d.%d.%d.%d",
		r.IntN(256), r.IntN(256),
		r.IntN(256), r.IntN(256))
}

// fakerIPv6 generates an address in full expanded notation.
func fakerIPv6(r *rand.Rand) string {
	groups := make([]string, 8)
	for i := range groups {
		groups[i] = fmt.Sprintf("%04x", r.IntN(65536))
	}
	return strings.Join(groups, ":")
}

func fakerMACAddress(r *rand.Rand) string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		r.IntN(256), r.IntN(256),
		r.IntN(256), r.IntN(256),
		r.IntN(256), r.IntN(256))
}

// fakerCreditCard generates a Luhn-valid 16-digit card number starting with 4.
func fakerCreditCard(r *rand.Rand) string {
	digits := make([]int, 16)
	digits[0] = 4
	for i := 1; i < 15; i++ {
		digits[i] = r.IntN(10)
	}

	// Luhn: with 16 digits, even indices are the doubled positions.
	sum := 0
	for i := 0; i < 15; i++ {
		d := digits[i]
		if i%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	digits[15] = (10 - (sum % 10)) % 10

	var sb strings.Builder
	for _, d := range digits {
		sb.WriteByte(byte('0' + d))
	}
	return sb.String()
}

// fakerIBAN generates an IBAN-shaped string. The check digits are not computed.
func fakerIBAN(r *rand.Rand) string {
	prefix := fakerIBANPrefixes[r.IntN(len(fakerIBANPrefixes))]
	checkDigits := fmt.Sprintf("%02d", r.IntN(90)+10)

	remaining := prefix.length - len(prefix.country) - 2 - len(prefix.bankPrefix)
	var sb strings.Builder
	sb.WriteString(prefix.country)
	sb.WriteString(checkDigits)
	sb.WriteString(prefix.bankPrefix)
	for i := 0; i < remaining; i++ {
		sb.WriteByte(byte('0' + r.IntN(10)))
	}
	return sb.String()
}

func fakerPrice(r *rand.Rand) string {
	dollars := r.IntN(999) + 1
	cents := r.IntN(100)
	return fmt.Sprintf("%d.%02d", dollars, cents)
}

// fakerSSN generates ###-##-####.
func fakerSSN(r *rand.Rand) string {
	area := r.IntN(899) + 100
	group := r.IntN(99) + 1
	serial := r.IntN(9999) + 1
	return fmt.Sprintf("%03d-%02d-%04d", area, group, serial)
}

func fakerPassport(r *rand.Rand) string {
	var sb strings.Builder
	sb.WriteByte(byte('A' + r.IntN(26)))
	sb.WriteByte(byte('A' + r.IntN(26)))
	for i := 0; i < 7; i++ {
		sb.WriteByte(byte('0' + r.IntN(10)))
	}
	return sb.String()
}
