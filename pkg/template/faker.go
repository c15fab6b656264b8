package template

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Faker produces fake identity data from a seeded generator. Two Fakers
// created with the same seed yield the same sequence for the same calls.
type Faker struct {
	mu   sync.Mutex
	rng  *rand.Rand
	seed uint64
}

// NewFaker creates a generator seeded with seed.
func NewFaker(seed uint64) *Faker {
	return &Faker{rng: newSeededRand(seed), seed: seed}
}

func newSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Seed returns the seed the current sequence started from.
func (f *Faker) Seed() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seed
}

// Reseed restarts the sequence from seed.
func (f *Faker) Reseed(seed uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rng = newSeededRand(seed)
	f.seed = seed
}

type fakerFunc func(r *rand.Rand, args Args) (any, error)

// locked serializes access to the shared generator.
func (f *Faker) locked(fn fakerFunc) Func {
	return func(args Args) (any, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		return fn(f.rng, args)
	}
}

// plain adapts an argument-free generator.
func (f *Faker) plain(fn func(r *rand.Rand) string) Func {
	return f.locked(func(r *rand.Rand, args Args) (any, error) {
		if err := args.atMost(0); err != nil {
			return nil, err
		}
		return fn(r), nil
	})
}

// Namespace returns the faker namespace backed by f.
func (f *Faker) Namespace() *Namespace {
	ns := NewNamespace("faker")

	// People
	ns.Register("name", f.plain(fakeName))
	ns.Register("first_name", f.plain(fakeFirstName))
	ns.Register("last_name", f.plain(fakeLastName))
	ns.Register("user_name", f.plain(fakeUserName))
	ns.Register("email", f.plain(fakeEmail))
	ns.Register("phone_number", f.plain(fakePhoneNumber))
	ns.Register("job", f.plain(fakeJob))
	ns.Register("ssn", f.plain(fakerSSN))
	ns.Register("passport_number", f.plain(fakerPassport))

	// Address
	ns.Register("address", f.plain(fakeAddress))
	ns.Register("street_address", f.plain(fakeStreetAddress))
	ns.Register("city", f.plain(fakeCity))
	ns.Register("country", f.plain(func(r *rand.Rand) string { return pick(r, enCountries) }))
	ns.Register("postcode", f.plain(fakePostcode))

	// Company and commerce
	ns.Register("company", f.plain(fakeCompany))
	ns.Register("product_name", f.plain(fakeProductName))
	ns.Register("price", f.plain(fakerPrice))
	ns.Register("color_name", f.plain(func(r *rand.Rand) string { return pick(r, fakerColors) }))
	ns.Register("hex_color", f.plain(func(r *rand.Rand) string { return fmt.Sprintf("#%06x", r.IntN(0x1000000)) }))
	ns.Register("currency_code", f.plain(func(r *rand.Rand) string { return pick(r, fakerCurrencyCodes) }))
	ns.Register("credit_card_number", f.plain(fakerCreditCard))
	ns.Register("iban", f.plain(fakerIBAN))

	// Internet
	ns.Register("uuid4", f.plain(fakeUUID4))
	ns.Register("url", f.plain(fakeURL))
	ns.Register("domain_name", f.plain(fakeDomainName))
	ns.Register("image_url", f.locked(fakeImageURL))
	ns.Register("ipv4", f.plain(fakerIPv4))
	ns.Register("ipv6", f.plain(fakerIPv6))
	ns.Register("mac_address", f.plain(fakerMACAddress))
	ns.Register("user_agent", f.plain(func(r *rand.Rand) string { return pick(r, fakerUserAgents) }))
	ns.Register("mime_type", f.plain(func(r *rand.Rand) string { return pick(r, fakerMIMETypes) }))
	ns.Register("file_extension", f.plain(func(r *rand.Rand) string { return pick(r, fakerFileExtensions) }))

	// Text
	ns.Register("word", f.plain(func(r *rand.Rand) string { return pick(r, loremWords) }))
	ns.Register("words", f.locked(fakeWords), int64(3))
	ns.Register("sentence", f.locked(fakeSentence), int64(6))
	ns.Register("paragraph", f.locked(fakeParagraph), int64(3))
	ns.Register("text", f.locked(fakeText), int64(200))

	// Numbers and booleans
	ns.Register("random_number", f.locked(fakeRandomNumber), int64(8))
	ns.Register("random_int", f.locked(fakeRandomInt), int64(0), int64(9999))
	ns.Register("pyint", f.locked(fakeRandomInt), int64(0), int64(9999))
	ns.Register("pybool", f.locked(func(r *rand.Rand, args Args) (any, error) {
		return r.IntN(2) == 1, args.atMost(0)
	}))
	ns.Register("boolean", f.locked(fakeBoolean), int64(50))

	// Dates
	ns.Register("date", f.plain(func(r *rand.Rand) string {
		return calendarDate(randomTime(r, time.Unix(0, 0), time.Now())).String()
	}))
	ns.Register("date_time", f.locked(func(r *rand.Rand, args Args) (any, error) {
		return naiveDateTime(randomTime(r, time.Unix(0, 0), time.Now())), args.atMost(0)
	}))
	ns.Register("date_time_this_year", f.locked(func(r *rand.Rand, args Args) (any, error) {
		now := time.Now()
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return naiveDateTime(randomTime(r, start, now)), args.atMost(0)
	}))
	ns.Register("iso8601", f.plain(func(r *rand.Rand) string {
		return randomTime(r, time.Unix(0, 0), time.Now()).Format("2006-01-02T15:04:05")
	}))

	// camelCase aliases
	aliases := map[string]string{
		"firstName":     "first_name",
		"lastName":      "last_name",
		"userName":      "user_name",
		"phoneNumber":   "phone_number",
		"jobTitle":      "job",
		"streetAddress": "street_address",
		"zipCode":       "postcode",
		"productName":   "product_name",
		"hexColor":      "hex_color",
		"currencyCode":  "currency_code",
		"creditCard":    "credit_card_number",
		"uuid":          "uuid4",
		"imageUrl":      "image_url",
		"macAddress":    "mac_address",
		"userAgent":     "user_agent",
		"mimeType":      "mime_type",
		"fileExtension": "file_extension",
	}
	for alias, target := range aliases {
		m, _ := ns.Lookup(target)
		ns.Register(alias, m.Call, m.Defaults...)
	}

	return ns
}

func pick(r *rand.Rand, items []string) string {
	return items[r.IntN(len(items))]
}

func digits(r *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('0' + r.IntN(10))
	}
	return string(b)
}

// chinese reports whether the zh_CN tables serve this call.
func chinese(r *rand.Rand) bool {
	return r.IntN(2) == 0
}

func randomTime(r *rand.Rand, start, end time.Time) time.Time {
	span := end.Unix() - start.Unix()
	if span <= 0 {
		return start
	}
	return time.Unix(start.Unix()+r.Int64N(span), 0).In(end.Location())
}

func fakeFirstName(r *rand.Rand) string {
	if chinese(r) {
		return pick(r, zhFirstNames)
	}
	return pick(r, enFirstNames)
}

func fakeLastName(r *rand.Rand) string {
	if chinese(r) {
		return pick(r, zhLastNames)
	}
	return pick(r, enLastNames)
}

func fakeName(r *rand.Rand) string {
	if chinese(r) {
		return pick(r, zhLastNames) + pick(r, zhFirstNames)
	}
	return pick(r, enFirstNames) + " " + pick(r, enLastNames)
}

func fakeUserName(r *rand.Rand) string {
	first := strings.ToLower(pick(r, enFirstNames))
	last := strings.ToLower(pick(r, enLastNames))
	switch r.IntN(3) {
	case 0:
		return first + "." + last
	case 1:
		return first + digits(r, 2)
	default:
		return first[:1] + last
	}
}

func fakeEmail(r *rand.Rand) string {
	return fakeUserName(r) + "@" + pick(r, freeEmailDomains)
}

func fakeDomainName(r *rand.Rand) string {
	return strings.ToLower(pick(r, enLastNames)) + "." + pick(r, topLevelDomains)
}

func fakeURL(r *rand.Rand) string {
	return "https://www." + fakeDomainName(r) + "/"
}

func fakeImageURL(r *rand.Rand, args Args) (any, error) {
	sizes := []int64{200, 320, 480, 640, 800, 1024}
	width, err := args.intOr(0, sizes[r.IntN(len(sizes))])
	if err != nil {
		return nil, err
	}
	height, err := args.intOr(1, sizes[r.IntN(len(sizes))])
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("https://dummyimage.com/%dx%d", width, height), nil
}

func fakePhoneNumber(r *rand.Rand) string {
	if chinese(r) {
		return pick(r, zhPhonePrefixes) + digits(r, 8)
	}
	area := r.IntN(800) + 200
	exchange := r.IntN(800) + 200
	switch r.IntN(3) {
	case 0:
		return fmt.Sprintf("(%d)%d-%s", area, exchange, digits(r, 4))
	case 1:
		return fmt.Sprintf("%d-%d-%s", area, exchange, digits(r, 4))
	default:
		return fmt.Sprintf("+1-%d-%d-%s", area, exchange, digits(r, 4))
	}
}

func fakeJob(r *rand.Rand) string {
	return pick(r, fakerJobLevels) + " " + pick(r, fakerJobFields) + " " + pick(r, fakerJobRoles)
}

func fakeCity(r *rand.Rand) string {
	if chinese(r) {
		return pick(r, zhCities)
	}
	return pick(r, enCities)
}

func fakePostcode(r *rand.Rand) string {
	if chinese(r) {
		return digits(r, 6)
	}
	return digits(r, 5)
}

func fakeStreetAddress(r *rand.Rand) string {
	if chinese(r) {
		return fmt.Sprintf("%s%s%d号", pick(r, zhDistricts), pick(r, zhStreetSuffixes), r.IntN(999)+1)
	}
	return fmt.Sprintf("%d %s %s", r.IntN(9899)+100, pick(r, enLastNames), pick(r, enStreetSuffixes))
}

func fakeAddress(r *rand.Rand) string {
	if chinese(r) {
		return fmt.Sprintf("%s市%s区%s路%d号 %s",
			pick(r, zhCities), pick(r, zhDistricts), pick(r, zhLastNames), r.IntN(999)+1, digits(r, 6))
	}
	return fmt.Sprintf("%d %s %s\n%s, %s %s",
		r.IntN(9899)+100, pick(r, enLastNames), pick(r, enStreetSuffixes),
		pick(r, enCities), pick(r, enStates), digits(r, 5))
}

func fakeCompany(r *rand.Rand) string {
	if chinese(r) {
		return pick(r, zhCities) + pick(r, zhCompanyCores) + pick(r, zhCompanySuffixes)
	}
	if r.IntN(3) == 0 {
		return fmt.Sprintf("%s, %s and %s", pick(r, enLastNames), pick(r, enLastNames), pick(r, enLastNames))
	}
	return pick(r, enLastNames) + " " + pick(r, enCompanySuffixes)
}

func fakeProductName(r *rand.Rand) string {
	return pick(r, fakerProductAdjectives) + " " + pick(r, fakerProductMaterials) + " " + pick(r, fakerProductNouns)
}

func fakeUUID4(r *rand.Rand) string {
	id, err := uuid.NewRandomFromReader(rngReader{r})
	if err != nil {
		// rngReader never fails.
		panic(err)
	}
	return id.String()
}

// rngReader exposes a seeded generator as an io.Reader so UUIDs follow the seed.
type rngReader struct {
	r *rand.Rand
}

func (rr rngReader) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 8 {
		v := rr.r.Uint64()
		for j := 0; j < 8 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}
	return len(p), nil
}

func fakeWords(r *rand.Rand, args Args) (any, error) {
	n, err := args.intOr(0, 3)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: nb must not be negative", ErrArgumentValue)
	}
	words := make([]string, n)
	for i := range words {
		words[i] = pick(r, loremWords)
	}
	return words, nil
}

// sentence builds a capitalized sentence. With variable set, the word
// count drifts by up to 40% like Faker's variable_nb_words.
func sentence(r *rand.Rand, nbWords int64, variable bool) string {
	if nbWords <= 0 {
		return ""
	}
	n := nbWords
	if variable {
		spread := nbWords * 40 / 100
		if spread > 0 {
			n += r.Int64N(2*spread+1) - spread
		}
		if n < 1 {
			n = 1
		}
	}
	words := make([]string, n)
	for i := range words {
		words[i] = pick(r, loremWords)
	}
	return capitalize(strings.Join(words, " ")) + "."
}

func capitalize(s string) string {
	for i, c := range s {
		return string(unicode.ToUpper(c)) + s[i+len(string(c)):]
	}
	return s
}

func fakeSentence(r *rand.Rand, args Args) (any, error) {
	n, err := args.intOr(0, 6)
	if err != nil {
		return nil, err
	}
	variable := true
	if args.has(1) {
		if variable, err = args.boolean(1); err != nil {
			return nil, err
		}
	}
	return sentence(r, n, variable), nil
}

func fakeParagraph(r *rand.Rand, args Args) (any, error) {
	n, err := args.intOr(0, 3)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return "", nil
	}
	sentences := make([]string, n)
	for i := range sentences {
		sentences[i] = sentence(r, 6, true)
	}
	return strings.Join(sentences, " "), nil
}

// fakeText returns text no longer than max_nb_chars. Short limits are
// filled with words, longer ones with whole sentences.
func fakeText(r *rand.Rand, args Args) (any, error) {
	limit, err := args.intOr(0, 200)
	if err != nil {
		return nil, err
	}
	if limit < 5 {
		return nil, fmt.Errorf("%w: text can only generate text of at least 5 characters", ErrArgumentValue)
	}

	var sb strings.Builder
	if limit >= 25 {
		for {
			s := sentence(r, 6, true)
			need := len(s)
			if sb.Len() > 0 {
				need++
			}
			if int64(sb.Len()+need) > limit {
				break
			}
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(s)
		}
		if sb.Len() > 0 {
			return sb.String(), nil
		}
	}

	// Leave room for the closing period.
	for {
		w := pick(r, loremWords)
		need := len(w)
		if sb.Len() > 0 {
			need++
		}
		if int64(sb.Len()+need+1) > limit {
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(w)
	}
	return capitalize(sb.String()) + ".", nil
}

func fakeRandomNumber(r *rand.Rand, args Args) (any, error) {
	n, err := args.intOr(0, 8)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > 18 {
		return nil, fmt.Errorf("%w: digits must be between 0 and 18", ErrArgumentValue)
	}
	fixLen := false
	if args.has(1) {
		if fixLen, err = args.boolean(1); err != nil {
			return nil, err
		}
	}

	upper := int64(1)
	for i := int64(0); i < n; i++ {
		upper *= 10
	}
	if fixLen && n > 0 {
		lower := upper / 10
		return lower + r.Int64N(upper-lower), nil
	}
	return r.Int64N(upper), nil
}

func fakeRandomInt(r *rand.Rand, args Args) (any, error) {
	lo, err := args.intOr(0, 0)
	if err != nil {
		return nil, err
	}
	hi, err := args.intOr(1, 9999)
	if err != nil {
		return nil, err
	}
	if hi < lo {
		return nil, fmt.Errorf("%w: empty range [%d, %d]", ErrArgumentValue, lo, hi)
	}
	return lo + r.Int64N(hi-lo+1), nil
}

func fakeBoolean(r *rand.Rand, args Args) (any, error) {
	chance, err := args.intOr(0, 50)
	if err != nil {
		return nil, err
	}
	return r.Int64N(100) < chance, nil
}
