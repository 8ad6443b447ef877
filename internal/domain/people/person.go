package people

import (
	"net/mail"
	"strings"
	"time"

	"github.com/sac/membership/internal/domain/shared"
)

// Gender of a person as recorded by the club
type Gender string

const (
	GenderMale    Gender = "m"
	GenderFemale  Gender = "w"
	GenderUnknown Gender = ""
)

// Language is the correspondence language
type Language string

const (
	LanguageDE Language = "de"
	LanguageFR Language = "fr"
	LanguageIT Language = "it"
	LanguageEN Language = "en"
)

// Age thresholds, counted by year of birth
const (
	AdultAge        = 22
	YouthMinAge     = 6
	MinorFamilyMax  = 17
	DefaultCountry  = "CH"
	maxNameLength   = 100
	maxStreetLength = 200
)

// Person is a natural person registered with the club
type Person struct {
	shared.BaseAggregateRoot
	MembershipNumber     *int64
	FirstName            string
	LastName             string
	Birthday             *time.Time
	Gender               Gender
	Language             Language
	Email                string
	Phone                string
	Street               string
	HouseNumber          string
	PostBox              string
	ZipCode              string
	Town                 string
	Country              string
	HouseholdKey         string
	FamilyMainPerson     bool
	DataRetentionConsent bool
	SubscribeNewsletter  bool
	SubscribeFundraising bool
}

// NewPerson creates a new person with a name
func NewPerson(firstName, lastName string) (*Person, error) {
	if err := validateName(firstName, lastName); err != nil {
		return nil, err
	}
	p := &Person{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FirstName:         strings.TrimSpace(firstName),
		LastName:          strings.TrimSpace(lastName),
		Language:          LanguageDE,
		Country:           DefaultCountry,
	}
	return p, nil
}

// FullName returns "first last"
func (p *Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Rename changes first and last name
func (p *Person) Rename(firstName, lastName string) error {
	if err := validateName(firstName, lastName); err != nil {
		return err
	}
	p.FirstName = strings.TrimSpace(firstName)
	p.LastName = strings.TrimSpace(lastName)
	p.Touch()
	return nil
}

// SetMembershipNumber records the legacy membership number
func (p *Person) SetMembershipNumber(number int64) error {
	if number <= 0 {
		return shared.NewDomainError("INVALID_MEMBERSHIP_NUMBER", "Membership number must be positive")
	}
	p.MembershipNumber = &number
	p.Touch()
	return nil
}

// SetBirthday sets the birthday; future dates are rejected
func (p *Person) SetBirthday(birthday time.Time) error {
	birthday = shared.Date(birthday)
	if birthday.After(shared.Today()) {
		return shared.NewDomainError("INVALID_BIRTHDAY", "Birthday cannot be in the future")
	}
	p.Birthday = &birthday
	p.Touch()
	return nil
}

// SetEmail sets the email address; an empty value clears it
func (p *Person) SetEmail(email string) error {
	email = strings.TrimSpace(email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return shared.NewDomainError("INVALID_EMAIL", "Invalid email address: "+email)
		}
	}
	p.Email = strings.ToLower(email)
	p.Touch()
	return nil
}

// SetGender sets the gender from a legacy or current code
func (p *Person) SetGender(g string) error {
	switch strings.ToLower(strings.TrimSpace(g)) {
	case "m", "male", "männlich":
		p.Gender = GenderMale
	case "w", "f", "female", "weiblich":
		p.Gender = GenderFemale
	case "":
		p.Gender = GenderUnknown
	default:
		return shared.NewDomainError("INVALID_GENDER", "Unknown gender: "+g)
	}
	p.Touch()
	return nil
}

// SetLanguage sets the correspondence language
func (p *Person) SetLanguage(lang string) error {
	switch Language(strings.ToLower(strings.TrimSpace(lang))) {
	case LanguageDE, "":
		p.Language = LanguageDE
	case LanguageFR:
		p.Language = LanguageFR
	case LanguageIT:
		p.Language = LanguageIT
	case LanguageEN:
		p.Language = LanguageEN
	default:
		return shared.NewDomainError("INVALID_LANGUAGE", "Unsupported language: "+lang)
	}
	p.Touch()
	return nil
}

// SetAddress sets the postal address
func (p *Person) SetAddress(street, houseNumber, postBox, zipCode, town, country string) error {
	if len(street) > maxStreetLength {
		return shared.NewDomainError("INVALID_ADDRESS", "Street cannot exceed 200 characters")
	}
	p.Street = strings.TrimSpace(street)
	p.HouseNumber = strings.TrimSpace(houseNumber)
	p.PostBox = strings.TrimSpace(postBox)
	p.ZipCode = strings.TrimSpace(zipCode)
	p.Town = strings.TrimSpace(town)
	p.Country = strings.ToUpper(strings.TrimSpace(country))
	if p.Country == "" {
		p.Country = DefaultCountry
	}
	p.Touch()
	return nil
}

// Address returns street and house number on one line
func (p *Person) Address() string {
	return strings.TrimSpace(p.Street + " " + p.HouseNumber)
}

// AgeIn returns the age a person reaches in the given year. Returns -1
// when the birthday is unknown.
func (p *Person) AgeIn(year int) int {
	if p.Birthday == nil {
		return -1
	}
	return year - p.Birthday.Year()
}

// IsAdultIn reports whether the person counts as an adult in year
func (p *Person) IsAdultIn(year int) bool {
	return p.AgeIn(year) >= AdultAge
}

// InHousehold reports whether the person belongs to a household
func (p *Person) InHousehold() bool {
	return p.HouseholdKey != ""
}

// JoinHousehold assigns the household key
func (p *Person) JoinHousehold(key string) {
	p.HouseholdKey = key
	p.Touch()
}

// LeaveHousehold clears household membership and the main person flag
func (p *Person) LeaveHousehold() {
	p.HouseholdKey = ""
	p.FamilyMainPerson = false
	p.Touch()
}

// SetSubscriptions records the choices made when leaving the club
func (p *Person) SetSubscriptions(newsletter, fundraising, dataRetention bool) {
	p.SubscribeNewsletter = newsletter
	p.SubscribeFundraising = fundraising
	p.DataRetentionConsent = dataRetention
	p.Touch()
}

func validateName(firstName, lastName string) error {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" && lastName == "" {
		return shared.NewDomainError("INVALID_NAME", "Person needs a first or last name")
	}
	if len(firstName) > maxNameLength || len(lastName) > maxNameLength {
		return shared.NewDomainError("INVALID_NAME", "Name cannot exceed 100 characters")
	}
	return nil
}
